package domain

import "time"

// SubScores holds the four scoring components, each in [0,100].
type SubScores struct {
	Expertise    float64 `json:"expertise"`
	Reputation   float64 `json:"reputation"`
	Staking      float64 `json:"staking"`
	Availability float64 `json:"availability"`
}

// ReviewerScore is the outcome of scoring one reviewer for one paper.
type ReviewerScore struct {
	ReviewerID    string    `json:"reviewerID"`
	Account       string    `json:"account"`
	Reputation    float64   `json:"reputation"`
	Scores        SubScores `json:"scores"`
	Total         float64   `json:"total"`
	MatchedTags   []string  `json:"matchedTags"`
	ActiveReviews int       `json:"activeReviews"`
	Eligible      bool      `json:"eligible"`
	Rank          int       `json:"rank"`
}

// ReviewAssignmentCandidate is one audit-trail row of an assignment pass.
type ReviewAssignmentCandidate struct {
	PaperID     string     `json:"paperID"`
	PassID      string     `json:"passID"`
	ReviewerID  string     `json:"reviewerID"`
	Account     string     `json:"account"`
	Scores      SubScores  `json:"scores"`
	Total       float64    `json:"total"`
	MatchedTags []string   `json:"matchedTags"`
	Eligible    bool       `json:"eligible"`
	Priority    int        `json:"priority"`
	Assigned    bool       `json:"assigned"`
	AssignedAt  *time.Time `json:"assignedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}
