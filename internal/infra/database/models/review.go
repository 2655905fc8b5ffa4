package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Review struct {
	ID              string          `json:"id" gorm:"primaryKey;size:64"`
	PaperID         string          `json:"paperID" gorm:"size:64;not null;uniqueIndex:uniq_review;index"`
	ReviewerID      string          `json:"reviewerID" gorm:"size:64;not null;uniqueIndex:uniq_review;index:idx_review_active"`
	ReviewerAccount string          `json:"reviewerAccount" gorm:"size:64;not null"`
	StakeAmount     decimal.Decimal `json:"stakeAmount" gorm:"type:decimal(38,18);not null"`
	Verdict         int             `json:"verdict" gorm:"not null;default:0"`
	Status          string          `json:"status" gorm:"size:16;not null;index:idx_review_active"`
	Aligned         *bool           `json:"aligned"`
	RewardAmount    decimal.Decimal `json:"rewardAmount" gorm:"type:decimal(38,18);not null;default:0"`
	SlashedAmount   decimal.Decimal `json:"slashedAmount" gorm:"type:decimal(38,18);not null;default:0"`
	ClaimedAt       time.Time       `json:"claimedAt"`
	SubmittedAt     *time.Time      `json:"submittedAt"`
	SettledAt       *time.Time      `json:"settledAt"`
}
