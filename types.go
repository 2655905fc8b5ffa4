package peerreview

import (
	"encoding/json"
	"time"
)

const (
	EventChannel string = "peerreview:events"
)

// Event is the envelope published on the event channel and relayed to
// websocket subscribers.
type Event struct {
	Type      string          `json:"type"`
	PaperID   string          `json:"paperID"`
	Actor     string          `json:"actor,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

func NewEvent(eventType, paperID, actor string, payload any) (Event, error) {
	event := Event{
		Type:      eventType,
		PaperID:   paperID,
		Actor:     actor,
		CreatedAt: time.Now().UTC(),
	}
	if payload == nil {
		return event, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	event.Payload = raw
	return event, nil
}

// AssignedPayload accompanies paper.assigned.
type AssignedPayload struct {
	PassID   string   `json:"passID"`
	Accounts []string `json:"accounts"`
}

// VerdictPayload accompanies paper.published and paper.rejected.
type VerdictPayload struct {
	Approved         bool   `json:"approved"`
	ConsensusReached bool   `json:"consensusReached"`
	AcceptVotes      int    `json:"acceptVotes"`
	RejectVotes      int    `json:"rejectVotes"`
	LedgerTxID       string `json:"ledgerTxID,omitempty"`
}
