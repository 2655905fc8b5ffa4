// Package scoring rates how well a reviewer fits a paper. Every function is
// pure and total: inputs outside the expected ranges are clamped, never
// rejected.
package scoring

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/totegamma/peerreview"
	"github.com/totegamma/peerreview/internal/domain"
)

const (
	WeightExpertise    = 0.4
	WeightReputation   = 0.3
	WeightStaking      = 0.2
	WeightAvailability = 0.1

	MaxReputation          = 1000.0
	DefaultMaxConcurrent   = 3
	MinimumExpertiseScore  = 20.0
	directMatchBonus       = 10.0
	stakingCapacityPerUnit = 100.0
)

// ExpertiseMatch is the result of comparing paper keywords to expertise tags.
type ExpertiseMatch struct {
	Score         float64
	Matched       []string
	DirectMatches int
}

// Expertise scores keyword coverage. A keyword matches directly when it is a
// substring of a tag or the tag is a substring of it, and semantically when
// the synonym table links the two.
func Expertise(keywords, tags []string, synonyms SynonymTable) ExpertiseMatch {
	paper := normalizeAll(keywords)
	expertise := normalizeAll(tags)
	if len(paper) == 0 || len(expertise) == 0 {
		return ExpertiseMatch{Matched: []string{}}
	}

	matched := make([]string, 0, len(paper))
	seen := make(map[string]bool, len(paper))
	direct := 0
	for _, keyword := range paper {
		isDirect, isSemantic := false, false
		for _, tag := range expertise {
			if strings.Contains(tag, keyword) || strings.Contains(keyword, tag) {
				isDirect = true
				break
			}
			if synonyms.Related(keyword, tag) {
				isSemantic = true
			}
		}
		if isDirect {
			direct++
		}
		if (isDirect || isSemantic) && !seen[keyword] {
			seen[keyword] = true
			matched = append(matched, keyword)
		}
	}

	percentage := float64(len(matched)) / float64(len(paper))
	score := math.Min(percentage*100+float64(direct)*directMatchBonus, 100)
	return ExpertiseMatch{Score: score, Matched: matched, DirectMatches: direct}
}

// Reputation maps raw on-chain reputation from [0, MaxReputation] onto [0,100].
func Reputation(reputation float64) float64 {
	return clamp(reputation/MaxReputation*100, 0, 100)
}

// Staking scores free staking capacity. Capacity below minimumStake scores 0.
func Staking(available, staked, minimumStake decimal.Decimal) float64 {
	capacity := available.Sub(staked)
	if capacity.LessThan(minimumStake) {
		return 0
	}
	headroom := capacity.Sub(minimumStake).InexactFloat64()
	return math.Min(100, headroom/stakingCapacityPerUnit*100)
}

// Availability scores remaining review slots out of maxConcurrent.
func Availability(active, maxConcurrent int) float64 {
	if maxConcurrent <= 0 || active >= maxConcurrent {
		return 0
	}
	if active < 0 {
		active = 0
	}
	return float64(maxConcurrent-active) / float64(maxConcurrent) * 100
}

// Overall is the weighted sum of the sub-scores.
func Overall(s domain.SubScores) float64 {
	return WeightExpertise*s.Expertise +
		WeightReputation*s.Reputation +
		WeightStaking*s.Staking +
		WeightAvailability*s.Availability
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// normalizeAll lowercases and dedupes terms, keeping first-seen order.
func normalizeAll(terms []string) []string {
	result := make([]string, 0, len(terms))
	for _, term := range peerreview.NormalizeTerms(terms) {
		result = append(result, peerreview.NormalizeTerm(term))
	}
	return result
}
