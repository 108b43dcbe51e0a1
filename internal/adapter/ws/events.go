package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for run lifecycle messages.
const (
	EventRunStarted    = "run.started"
	EventRunDenied     = "run.denied"
	EventRunDispatched = "run.dispatched"
	EventRunFailed     = "run.failed"
)

// BroadcastEvent marshals a typed event and broadcasts it to all observers.
// It implements broadcast.Broadcaster.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
