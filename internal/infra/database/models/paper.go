package models

import (
	"time"

	"gorm.io/datatypes"
)

type Paper struct {
	ID                 string                      `json:"id" gorm:"primaryKey;size:64"`
	Title              string                      `json:"title" gorm:"type:text;not null"`
	Abstract           string                      `json:"abstract" gorm:"type:text"`
	Keywords           datatypes.JSONSlice[string] `json:"keywords"`
	AuthorID           string                      `json:"authorID" gorm:"size:64;index"`
	AuthorEmail        string                      `json:"authorEmail" gorm:"size:255"`
	RequiredReviews    int                         `json:"requiredReviews" gorm:"not null;default:3"`
	Status             string                      `json:"status" gorm:"size:32;not null;index"`
	ConsensusReached   bool                        `json:"consensusReached" gorm:"not null;default:false"`
	ConsensusVerdict   bool                        `json:"consensusVerdict" gorm:"not null;default:false"`
	ConsensusReachedAt *time.Time                  `json:"consensusReachedAt"`
	PublishedAt        *time.Time                  `json:"publishedAt"`
	LedgerTxID         string                      `json:"ledgerTxID" gorm:"size:128"`
	FailureReason      string                      `json:"failureReason" gorm:"type:text"`
	CreatedAt          time.Time                   `json:"createdAt"`
	UpdatedAt          time.Time                   `json:"updatedAt" gorm:"index"`
}
