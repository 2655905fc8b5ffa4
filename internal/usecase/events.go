package usecase

import (
	"context"

	"github.com/inconshreveable/log15"

	"github.com/totegamma/peerreview"
)

var logger = log15.New("module", "usecase")

// emit publishes best-effort: a lost event never fails the operation.
func emit(ctx context.Context, publisher EventPublisher, eventType, paperID, actor string, payload any) {
	if publisher == nil {
		return
	}
	event, err := peerreview.NewEvent(eventType, paperID, actor, payload)
	if err != nil {
		logger.Error("failed to build event", "type", eventType, "paper", paperID, "err", err)
		return
	}
	if err := publisher.Publish(ctx, peerreview.EventChannel, event); err != nil {
		logger.Warn("failed to publish event", "type", eventType, "paper", paperID, "err", err)
	}
}
