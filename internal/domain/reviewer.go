package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReviewerProfile is read-only to the assignment engine.
type ReviewerProfile struct {
	ID             string    `json:"id"`
	ExpertiseTags  []string  `json:"expertiseTags"`
	Reputation     float64   `json:"reputation"`
	IsReviewer     bool      `json:"isReviewer"`
	StakingAccount string    `json:"stakingAccount"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// WalletSnapshot is the cached balance of a staking account. Staleness is
// tolerated.
type WalletSnapshot struct {
	Account          string          `json:"account"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
	StakedAmount     decimal.Decimal `json:"stakedAmount"`
	SyncedAt         time.Time       `json:"syncedAt"`
}
