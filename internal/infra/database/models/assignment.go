package models

import (
	"time"

	"gorm.io/datatypes"
)

// AssignmentCandidate is one scored reviewer of one assignment pass.
type AssignmentCandidate struct {
	ID              int64                       `json:"id" gorm:"primaryKey;autoIncrement"`
	PaperID         string                      `json:"paperID" gorm:"size:64;not null;uniqueIndex:uniq_candidate;index"`
	ReviewerAccount string                      `json:"reviewerAccount" gorm:"size:64;not null;uniqueIndex:uniq_candidate"`
	PassID          string                      `json:"passID" gorm:"size:64;not null;uniqueIndex:uniq_candidate"`
	ReviewerID      string                      `json:"reviewerID" gorm:"size:64;not null"`
	Expertise       float64                     `json:"expertise"`
	Reputation      float64                     `json:"reputation"`
	Staking         float64                     `json:"staking"`
	Availability    float64                     `json:"availability"`
	Total           float64                     `json:"total"`
	MatchedTags     datatypes.JSONSlice[string] `json:"matchedTags"`
	Eligible        bool                        `json:"eligible" gorm:"not null;default:false"`
	Priority        int                         `json:"priority" gorm:"not null;default:0"`
	Assigned        bool                        `json:"assigned" gorm:"not null;default:false"`
	AssignedAt      *time.Time                  `json:"assignedAt"`
	CreatedAt       time.Time                   `json:"createdAt"`
}
