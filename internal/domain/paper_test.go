package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaperLifecycle(t *testing.T) {
	tests := []struct {
		from PaperStatus
		to   PaperStatus
		ok   bool
	}{
		{PaperStatusSubmitted, PaperStatusUnderReview, true},
		{PaperStatusSubmitted, PaperStatusSubmissionFailed, true},
		{PaperStatusUnderReview, PaperStatusPublished, true},
		{PaperStatusUnderReview, PaperStatusRejected, true},
		{PaperStatusSubmitted, PaperStatusPublished, false},
		{PaperStatusPublished, PaperStatusRejected, false},
		{PaperStatusRejected, PaperStatusUnderReview, false},
		{PaperStatusSubmissionFailed, PaperStatusSubmitted, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestPaperStatusJSON(t *testing.T) {
	b, err := json.Marshal(Paper{ID: "p1", Status: PaperStatusUnderReview})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"status":"under_review"`)

	var decoded Paper
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, PaperStatusUnderReview, decoded.Status)
	assert.True(t, PaperStatusPublished.Terminal())
	assert.False(t, PaperStatusUnderReview.Terminal())
}

func TestVerdictClasses(t *testing.T) {
	assert.True(t, VerdictAccept.Approves())
	assert.True(t, VerdictMinorRevision.Approves())
	assert.False(t, VerdictMajorRevision.Approves())
	assert.False(t, VerdictReject.Approves())
	assert.False(t, Verdict(0).Valid())
	assert.False(t, Verdict(5).Valid())
}
