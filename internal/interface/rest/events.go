package rest

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/inconshreveable/log15"
	"github.com/labstack/echo/v4"

	"github.com/totegamma/peerreview"
)

var socketLog = log15.New("module", "socket")

// EventSubscriber streams lifecycle events from the event bus.
type EventSubscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan peerreview.Event, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleEvents relays events to a websocket client. ?paper=<id> limits the
// stream to one paper.
func (h *Handler) handleEvents(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		socketLog.Error("failed to upgrade websocket", "err", err)
		return err
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	events, err := h.events.Subscribe(ctx, peerreview.EventChannel)
	if err != nil {
		socketLog.Error("failed to subscribe", "err", err)
		_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"))
		return nil
	}

	paperFilter := c.QueryParam("paper")

	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				wsErr, ok := err.(*websocket.CloseError)
				if ok && (wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
					socketLog.Debug("websocket closed", "code", wsErr.Code)
				} else {
					socketLog.Debug("websocket read failed", "err", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if paperFilter != "" && event.PaperID != paperFilter {
				continue
			}
			if err := ws.WriteJSON(event); err != nil {
				socketLog.Error("failed to write event", "err", err)
				return nil
			}
		}
	}
}
