package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/peerreview/internal/domain"
	"github.com/totegamma/peerreview/internal/infra/database/models"
)

func TestWalletKey(t *testing.T) {
	key := walletKey("0x8ba1f109551bD432803012645Ac136ddd64DBA72")
	assert.True(t, strings.HasPrefix(key, "wallet:"))
	assert.LessOrEqual(t, len(key), 250)
	assert.Equal(t, key, walletKey("0x8ba1f109551bD432803012645Ac136ddd64DBA72"))
	assert.NotEqual(t, key, walletKey("0x0000000000000000000000000000000000000001"))
}

func TestPaperRowStatus(t *testing.T) {
	paper := domain.Paper{ID: "p", Status: domain.PaperStatusUnderReview, RequiredReviews: 3}
	row := paperFromDomain(paper)
	assert.Equal(t, "under_review", row.Status)

	back, err := paperToDomain(row)
	require.NoError(t, err)
	assert.Equal(t, domain.PaperStatusUnderReview, back.Status)
	assert.NotNil(t, back.Keywords)

	_, err = paperToDomain(models.Paper{ID: "p", Status: "limbo"})
	assert.Error(t, err)
}

func TestReviewRowStatus(t *testing.T) {
	_, err := reviewToDomain(models.Review{ID: "r", Status: "lost"})
	assert.Error(t, err)

	review, err := reviewToDomain(models.Review{ID: "r", Status: "submitted", Verdict: 4})
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewStatusSubmitted, review.Status)
	assert.Equal(t, domain.VerdictReject, review.Verdict)
}

func TestCandidateRowKeepsAccount(t *testing.T) {
	row := candidateFromDomain(domain.ReviewAssignmentCandidate{
		PaperID:  "p",
		PassID:   "pass",
		Account:  "0xabc",
		Priority: 2,
		Scores:   domain.SubScores{Expertise: 80},
	})
	assert.Equal(t, "0xabc", row.ReviewerAccount)

	back := candidateToDomain(row)
	assert.Equal(t, "0xabc", back.Account)
	assert.Equal(t, 80.0, back.Scores.Expertise)
	assert.NotNil(t, back.MatchedTags)
}
