package domain

import (
	"fmt"
	"time"
)

type PaperStatus int

const (
	PaperStatusDraft PaperStatus = iota
	PaperStatusSubmitted
	PaperStatusUnderReview
	PaperStatusPublished
	PaperStatusRejected
	PaperStatusSubmissionFailed
)

var paperStatusNames = map[PaperStatus]string{
	PaperStatusDraft:            "draft",
	PaperStatusSubmitted:        "submitted",
	PaperStatusUnderReview:      "under_review",
	PaperStatusPublished:        "published",
	PaperStatusRejected:         "rejected",
	PaperStatusSubmissionFailed: "submission_failed",
}

func (s PaperStatus) String() string {
	if name, ok := paperStatusNames[s]; ok {
		return name
	}
	return "unknown"
}

func ParsePaperStatus(s string) (PaperStatus, error) {
	for status, name := range paperStatusNames {
		if name == s {
			return status, nil
		}
	}
	return PaperStatusDraft, fmt.Errorf("unknown paper status %q", s)
}

func (s PaperStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *PaperStatus) UnmarshalText(b []byte) error {
	parsed, err := ParsePaperStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Terminal reports whether no transition may leave the status.
func (s PaperStatus) Terminal() bool {
	return s == PaperStatusPublished || s == PaperStatusRejected || s == PaperStatusSubmissionFailed
}

var paperTransitions = map[PaperStatus][]PaperStatus{
	PaperStatusDraft:       {PaperStatusSubmitted},
	PaperStatusSubmitted:   {PaperStatusUnderReview, PaperStatusSubmissionFailed},
	PaperStatusUnderReview: {PaperStatusPublished, PaperStatusRejected},
}

// CanTransition reports whether from -> to is an edge of the paper lifecycle.
func CanTransition(from, to PaperStatus) bool {
	for _, next := range paperTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ConsensusFields are written together with the terminal status.
type ConsensusFields struct {
	Reached     bool       `json:"reached"`
	Verdict     bool       `json:"verdict"`
	ReachedAt   *time.Time `json:"reachedAt,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

// Paper is a submitted manuscript going through review.
type Paper struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Abstract        string          `json:"abstract"`
	Keywords        []string        `json:"keywords"`
	AuthorID        string          `json:"authorID"`
	AuthorEmail     string          `json:"authorEmail,omitempty"`
	RequiredReviews int             `json:"requiredReviews"`
	Status          PaperStatus     `json:"status"`
	Consensus       ConsensusFields `json:"consensus"`
	LedgerTxID      string          `json:"ledgerTxID,omitempty"`
	FailureReason   string          `json:"failureReason,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}
