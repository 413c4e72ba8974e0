package notifications

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"vexillum/internal/middleware"
)

// Event is the JSON envelope written to feed clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	At      time.Time   `json:"at"`
}

// Feed publishes content events. With Redis every instance receives the
// event through its subscription; without it the local hub is used directly.
type Feed struct {
	notifier *Notifier
	hub      *Hub
}

func NewFeed(notifier *Notifier, hub *Hub) *Feed {
	return &Feed{notifier: notifier, hub: hub}
}

// Publish encodes the event and sends it. Failures are logged, never returned.
func (f *Feed) Publish(ctx context.Context, eventType string, payload interface{}) {
	data, err := json.Marshal(Event{Type: eventType, Payload: payload, At: time.Now().UTC()})
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to encode feed event",
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
		return
	}

	if f.notifier.Enabled() {
		err := f.notifier.PublishFeed(ctx, string(data))
		if err == nil {
			return
		}
		middleware.Logger.WarnContext(ctx, "feed publish failed, delivering locally",
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
	}
	if f.hub != nil {
		f.hub.BroadcastAll(string(data))
	}
}
