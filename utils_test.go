package peerreview

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTerms(t *testing.T) {
	got := NormalizeTerms([]string{" Machine Learning ", "", "machine learning", "Security", "  "})
	assert.Equal(t, []string{"Machine Learning", "Security"}, got)
}

func TestNewEventPayload(t *testing.T) {
	event, err := NewEvent("paper.assigned", "p1", "", AssignedPayload{PassID: "x", Accounts: []string{"a"}})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"passID":"x","accounts":["a"]}`, string(event.Payload))

	empty, err := NewEvent("paper.failed", "p1", "", nil)
	assert.NoError(t, err)
	assert.Nil(t, empty.Payload)
}
