// Package broadcast defines the port for publishing run lifecycle events to
// connected observers.
package broadcast

import "context"

// Broadcaster sends run lifecycle events to all connected observers.
type Broadcaster interface {
	// BroadcastEvent sends a typed event to all connected observers.
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
