package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Reviewer struct {
	ID             string                      `json:"id" gorm:"primaryKey;size:64"`
	ExpertiseTags  datatypes.JSONSlice[string] `json:"expertiseTags"`
	Reputation     float64                     `json:"reputation" gorm:"not null;default:0"`
	IsReviewer     bool                        `json:"isReviewer" gorm:"not null;default:false;index"`
	StakingAccount string                      `json:"stakingAccount" gorm:"size:64;index"`
	UpdatedAt      time.Time                   `json:"updatedAt"`
}

type Wallet struct {
	Account          string          `json:"account" gorm:"primaryKey;size:64"`
	AvailableBalance decimal.Decimal `json:"availableBalance" gorm:"type:decimal(38,18);not null;default:0"`
	StakedAmount     decimal.Decimal `json:"stakedAmount" gorm:"type:decimal(38,18);not null;default:0"`
	SyncedAt         time.Time       `json:"syncedAt"`
}
