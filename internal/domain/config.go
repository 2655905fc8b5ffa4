package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssignmentSettings tune the reviewer assignment pass.
type AssignmentSettings struct {
	DefaultMinimumStake  decimal.Decimal
	MaxConcurrentReviews int
	DirectoryTimeout     time.Duration
	DefaultRequired      int
}

// ConsensusSettings tune verdict evaluation and settlement.
type ConsensusSettings struct {
	RewardAmount  decimal.Decimal
	SlashRatio    decimal.Decimal
	Supermajority float64
}

func DefaultAssignmentSettings() AssignmentSettings {
	return AssignmentSettings{
		DefaultMinimumStake:  decimal.NewFromInt(5),
		MaxConcurrentReviews: 3,
		DirectoryTimeout:     5 * time.Second,
		DefaultRequired:      3,
	}
}

func DefaultConsensusSettings() ConsensusSettings {
	return ConsensusSettings{
		RewardAmount:  decimal.NewFromInt(3),
		SlashRatio:    decimal.NewFromFloat(0.5),
		Supermajority: 0.67,
	}
}
