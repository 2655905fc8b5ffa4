package scoring

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/peerreview/internal/domain"
)

func TestExpertiseDirectAndSemantic(t *testing.T) {
	match := Expertise(
		[]string{"Quantum Computing", "machine learning", "security"},
		[]string{"distributed systems", "security", "machine learning"},
		DefaultSynonyms(),
	)
	assert.Equal(t, []string{"machine learning", "security"}, match.Matched)
	assert.Equal(t, 2, match.DirectMatches)
	assert.InDelta(t, 2.0/3.0*100+20, match.Score, 1e-9)

	full := Expertise(
		[]string{"quantum computing", "machine learning", "security"},
		[]string{"quantum computing", "machine learning", "security"},
		DefaultSynonyms(),
	)
	assert.Equal(t, 100.0, full.Score)
}

func TestExpertiseSubstring(t *testing.T) {
	match := Expertise([]string{"learning"}, []string{"Deep Learning"}, DefaultSynonyms())
	assert.Equal(t, []string{"learning"}, match.Matched)
	assert.Equal(t, 100.0, match.Score)

	reverse := Expertise([]string{"applied cryptography"}, []string{"cryptography"}, DefaultSynonyms())
	assert.Equal(t, 1, reverse.DirectMatches)
}

func TestExpertiseIgnoresDuplicateKeywords(t *testing.T) {
	match := Expertise([]string{"ai", "AI", " ai "}, []string{"ai"}, DefaultSynonyms())
	assert.Equal(t, []string{"ai"}, match.Matched)
	assert.Equal(t, 1, match.DirectMatches)
	assert.Equal(t, 100.0, match.Score)

	partial := Expertise([]string{"security", "Security", "databases"}, []string{"security"}, DefaultSynonyms())
	assert.Equal(t, 1, partial.DirectMatches)
	assert.InDelta(t, 50.0+10.0, partial.Score, 1e-9)
}

func TestExpertiseSemanticOnly(t *testing.T) {
	match := Expertise([]string{"ai", "databases"}, []string{"neural networks"}, DefaultSynonyms())
	assert.Equal(t, []string{"ai"}, match.Matched)
	assert.Equal(t, 0, match.DirectMatches)
	assert.InDelta(t, 50.0, match.Score, 1e-9)
}

func TestSemanticSymmetry(t *testing.T) {
	synonyms := DefaultSynonyms()
	pairs := [][2]string{
		{"ai", "machine learning"},
		{"blockchain", "smart contracts"},
		{"nlp", "natural language processing"},
		{"iot", "internet of things"},
	}
	for _, p := range pairs {
		assert.True(t, synonyms.Related(p[0], p[1]), "%s ~ %s", p[0], p[1])
		assert.True(t, synonyms.Related(p[1], p[0]), "%s ~ %s", p[1], p[0])

		forward := Expertise([]string{p[0]}, []string{p[1]}, synonyms)
		backward := Expertise([]string{p[1]}, []string{p[0]}, synonyms)
		assert.NotEmpty(t, forward.Matched)
		assert.NotEmpty(t, backward.Matched)
	}
	assert.False(t, synonyms.Related("machine learning", "deep learning"))
}

func TestExpertiseEmptyInputs(t *testing.T) {
	for _, tc := range []struct{ keywords, tags []string }{
		{nil, []string{"ai"}},
		{[]string{"ai"}, nil},
		{[]string{"  "}, []string{"ai"}},
		{nil, nil},
	} {
		match := Expertise(tc.keywords, tc.tags, DefaultSynonyms())
		assert.Equal(t, 0.0, match.Score)
		assert.Empty(t, match.Matched)
	}
}

func TestExpertiseBounds(t *testing.T) {
	vocabulary := []string{"ai", "machine learning", "security", "blockchain", "qubits", "iot", "learning", "data", "x", "cloud computing"}
	rng := rand.New(rand.NewSource(7))
	pick := func() []string {
		n := rng.Intn(6)
		out := make([]string, n)
		for i := range out {
			out[i] = vocabulary[rng.Intn(len(vocabulary))]
		}
		return out
	}
	for i := 0; i < 500; i++ {
		match := Expertise(pick(), pick(), DefaultSynonyms())
		assert.GreaterOrEqual(t, match.Score, 0.0)
		assert.LessOrEqual(t, match.Score, 100.0)
	}
}

func TestReputation(t *testing.T) {
	assert.Equal(t, 0.0, Reputation(-5))
	assert.InDelta(t, 15.0, Reputation(150), 1e-9)
	assert.Equal(t, 100.0, Reputation(1000))
	assert.Equal(t, 100.0, Reputation(5000))
}

func TestStaking(t *testing.T) {
	five := decimal.NewFromInt(5)
	assert.Equal(t, 0.0, Staking(decimal.NewFromInt(3), decimal.Zero, five))
	assert.Equal(t, 0.0, Staking(decimal.NewFromInt(20), decimal.NewFromInt(16), five))
	assert.Equal(t, 0.0, Staking(five, decimal.Zero, five))
	assert.InDelta(t, 45.0, Staking(decimal.NewFromInt(50), decimal.Zero, five), 1e-9)
	assert.Equal(t, 100.0, Staking(decimal.NewFromInt(1000), decimal.NewFromInt(10), five))
}

func TestAvailability(t *testing.T) {
	assert.Equal(t, 100.0, Availability(0, 3))
	assert.InDelta(t, 100.0/3.0, Availability(2, 3), 1e-9)
	assert.Equal(t, 0.0, Availability(3, 3))
	assert.Equal(t, 0.0, Availability(7, 3))
	assert.Equal(t, 0.0, Availability(0, 0))
}

func TestOverallWeightedSum(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 200; i++ {
		s := domain.SubScores{
			Expertise:    rng.Float64() * 100,
			Reputation:   rng.Float64() * 100,
			Staking:      rng.Float64() * 100,
			Availability: rng.Float64() * 100,
		}
		want := 0.4*s.Expertise + 0.3*s.Reputation + 0.2*s.Staking + 0.1*s.Availability
		assert.InDelta(t, want, Overall(s), 1e-9)
	}
}

func TestEligibleRequiresStaking(t *testing.T) {
	scorer := NewScorer(DefaultSynonyms(), 3)
	profile := domain.ReviewerProfile{
		ID:             "r1",
		ExpertiseTags:  []string{"quantum computing", "machine learning", "security"},
		Reputation:     1000,
		StakingAccount: "0x1111111111111111111111111111111111111111",
	}
	wallet := &domain.WalletSnapshot{AvailableBalance: decimal.NewFromInt(3)}
	score := scorer.Score([]string{"quantum computing"}, profile, wallet, 0, decimal.NewFromInt(5))

	require.Equal(t, 0.0, score.Scores.Staking)
	assert.Equal(t, 100.0, score.Scores.Expertise)
	assert.False(t, Eligible(score, Criteria{}))

	score.Scores.Staking = 10
	assert.True(t, Eligible(score, Criteria{}))
	assert.False(t, Eligible(score, Criteria{Excluded: map[string]bool{profile.StakingAccount: true}}))

	high := 2000.0
	assert.False(t, Eligible(score, Criteria{MinimumReputation: &high}))
}

func TestScoreWithoutWallet(t *testing.T) {
	scorer := NewScorer(DefaultSynonyms(), 0)
	score := scorer.Score([]string{"ai"}, domain.ReviewerProfile{ExpertiseTags: []string{"ai"}}, nil, 0, decimal.NewFromInt(5))
	assert.Equal(t, 0.0, score.Scores.Staking)
	assert.Equal(t, 100.0, score.Scores.Availability)
}

func TestParseSynonyms(t *testing.T) {
	table, err := ParseSynonyms([]byte("Rust:\n  - Systems Programming\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
	assert.True(t, table.Related("systems programming", "rust"))

	_, err = ParseSynonyms([]byte("- not a map"))
	assert.Error(t, err)

	def, err := LoadSynonyms("")
	require.NoError(t, err)
	assert.Equal(t, 10, def.Len())
}
