// Package consensus turns a paper's submitted verdicts into a publication
// decision and per-review settlements.
//
// Publication is decided by a strict majority of accept-class verdicts
// (accept, minor revision) over reject-class verdicts (major revision,
// reject). The two-thirds supermajority flag is computed and recorded but
// does not gate publication.
package consensus

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/totegamma/peerreview/internal/domain"
)

// Result is the evaluation of one paper.
type Result struct {
	AcceptVotes      int                    `json:"acceptVotes"`
	RejectVotes      int                    `json:"rejectVotes"`
	Total            int                    `json:"total"`
	ConsensusReached bool                   `json:"consensusReached"`
	Approved         bool                   `json:"approved"`
	Outcomes         []domain.ReviewOutcome `json:"outcomes"`
}

// Status is the terminal paper status implied by the result.
func (r Result) Status() domain.PaperStatus {
	if r.Approved {
		return domain.PaperStatusPublished
	}
	return domain.PaperStatusRejected
}

// Evaluate computes the verdict over submitted reviews. It does not look at
// review status; callers pass only submitted reviews.
func Evaluate(reviews []domain.ReviewRecord, settings domain.ConsensusSettings) (Result, error) {
	if len(reviews) == 0 {
		return Result{}, errors.Wrap(domain.ErrInvalidRequest, "no reviews to evaluate")
	}
	if !settings.RewardAmount.IsPositive() || !settings.SlashRatio.IsPositive() {
		return Result{}, errors.Wrap(domain.ErrInvalidRequest, "reward amount and slash ratio must be positive")
	}

	var result Result
	for _, review := range reviews {
		if !review.Verdict.Valid() {
			return Result{}, errors.Wrapf(domain.ErrInvalidVerdict, "review %s has verdict %d", review.ID, review.Verdict)
		}
		if review.Verdict.Approves() {
			result.AcceptVotes++
		} else {
			result.RejectVotes++
		}
	}
	result.Total = len(reviews)
	result.ConsensusReached = float64(result.AcceptVotes)/float64(result.Total) >= settings.Supermajority
	result.Approved = result.AcceptVotes > result.RejectVotes

	result.Outcomes = make([]domain.ReviewOutcome, 0, len(reviews))
	for _, review := range reviews {
		result.Outcomes = append(result.Outcomes, Settle(review, result.Approved, settings))
	}
	return result, nil
}

// Settle rewards a review aligned with the decision and slashes the stake of
// one that is not.
func Settle(review domain.ReviewRecord, approved bool, settings domain.ConsensusSettings) domain.ReviewOutcome {
	outcome := domain.ReviewOutcome{ReviewID: review.ID}
	outcome.Aligned = review.Verdict.Approves() == approved
	if outcome.Aligned {
		outcome.Reward = settings.RewardAmount
		outcome.Slash = decimal.Zero
	} else {
		outcome.Reward = decimal.Zero
		outcome.Slash = review.StakeAmount.Mul(settings.SlashRatio)
	}
	return outcome
}
