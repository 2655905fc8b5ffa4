package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Verdict is a reviewer's recommendation, 1 (accept) to 4 (reject).
type Verdict int

const (
	VerdictAccept        Verdict = 1
	VerdictMinorRevision Verdict = 2
	VerdictMajorRevision Verdict = 3
	VerdictReject        Verdict = 4
)

func (v Verdict) Valid() bool {
	return v >= VerdictAccept && v <= VerdictReject
}

// Approves reports whether the verdict counts as an accept-class vote.
func (v Verdict) Approves() bool {
	return v == VerdictAccept || v == VerdictMinorRevision
}

func (v Verdict) String() string {
	switch v {
	case VerdictAccept:
		return "accept"
	case VerdictMinorRevision:
		return "minor_revision"
	case VerdictMajorRevision:
		return "major_revision"
	case VerdictReject:
		return "reject"
	default:
		return "invalid"
	}
}

type ReviewStatus int

const (
	ReviewStatusClaimed ReviewStatus = iota + 1
	ReviewStatusSubmitted
)

func (s ReviewStatus) String() string {
	switch s {
	case ReviewStatusClaimed:
		return "claimed"
	case ReviewStatusSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}

func (s ReviewStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ReviewStatus) UnmarshalText(b []byte) error {
	parsed, err := ParseReviewStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func ParseReviewStatus(s string) (ReviewStatus, error) {
	switch s {
	case "claimed":
		return ReviewStatusClaimed, nil
	case "submitted":
		return ReviewStatusSubmitted, nil
	default:
		return 0, fmt.Errorf("unknown review status %q", s)
	}
}

// ReviewRecord is created on claim, filled on submission and settled once
// consensus is evaluated.
type ReviewRecord struct {
	ID              string          `json:"id"`
	PaperID         string          `json:"paperID"`
	ReviewerID      string          `json:"reviewerID"`
	ReviewerAccount string          `json:"reviewerAccount"`
	StakeAmount     decimal.Decimal `json:"stakeAmount"`
	Verdict         Verdict         `json:"verdict,omitempty"`
	Status          ReviewStatus    `json:"status"`
	Aligned         *bool           `json:"aligned,omitempty"`
	RewardAmount    decimal.Decimal `json:"rewardAmount"`
	SlashedAmount   decimal.Decimal `json:"slashedAmount"`
	ClaimedAt       time.Time       `json:"claimedAt"`
	SubmittedAt     *time.Time      `json:"submittedAt,omitempty"`
	SettledAt       *time.Time      `json:"settledAt,omitempty"`
}

// ReviewOutcome is the settlement of one review after consensus.
type ReviewOutcome struct {
	ReviewID string          `json:"reviewID"`
	Aligned  bool            `json:"aligned"`
	Reward   decimal.Decimal `json:"reward"`
	Slash    decimal.Decimal `json:"slash"`
}
