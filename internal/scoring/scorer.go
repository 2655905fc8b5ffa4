package scoring

import (
	"github.com/shopspring/decimal"

	"github.com/totegamma/peerreview/internal/domain"
)

// Criteria are the per-request eligibility bounds.
type Criteria struct {
	MinimumReputation *float64
	Excluded          map[string]bool
}

// Scorer bundles the tunables shared by every scoring call of a pass.
type Scorer struct {
	synonyms      SynonymTable
	maxConcurrent int
}

func NewScorer(synonyms SynonymTable, maxConcurrent int) *Scorer {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Scorer{
		synonyms:      synonyms,
		maxConcurrent: maxConcurrent,
	}
}

// Score rates one reviewer. A missing wallet snapshot is treated as an empty
// wallet.
func (s *Scorer) Score(
	keywords []string,
	profile domain.ReviewerProfile,
	wallet *domain.WalletSnapshot,
	activeReviews int,
	minimumStake decimal.Decimal,
) domain.ReviewerScore {
	expertise := Expertise(keywords, profile.ExpertiseTags, s.synonyms)

	available, staked := decimal.Zero, decimal.Zero
	if wallet != nil {
		available, staked = wallet.AvailableBalance, wallet.StakedAmount
	}

	sub := domain.SubScores{
		Expertise:    expertise.Score,
		Reputation:   Reputation(profile.Reputation),
		Staking:      Staking(available, staked, minimumStake),
		Availability: Availability(activeReviews, s.maxConcurrent),
	}

	return domain.ReviewerScore{
		ReviewerID:    profile.ID,
		Account:       profile.StakingAccount,
		Reputation:    profile.Reputation,
		Scores:        sub,
		Total:         Overall(sub),
		MatchedTags:   expertise.Matched,
		ActiveReviews: activeReviews,
	}
}

// Eligible applies the assignment eligibility predicate. Minimum reputation
// is compared against raw reputation.
func Eligible(score domain.ReviewerScore, criteria Criteria) bool {
	if score.Scores.Expertise < MinimumExpertiseScore {
		return false
	}
	if criteria.MinimumReputation != nil && score.Reputation < *criteria.MinimumReputation {
		return false
	}
	if score.Scores.Staking <= 0 || score.Scores.Availability <= 0 {
		return false
	}
	return !criteria.Excluded[score.Account]
}
