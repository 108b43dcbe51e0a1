package messagequeue

import "github.com/Strob0t/TestRelay/internal/domain/trigger"

// RunRequestPayload is the schema for relay.runs messages: one normalized
// pull-request event, stamped with the run ID assigned at the webhook edge.
type RunRequestPayload struct {
	RunID string        `json:"run_id"`
	Event trigger.Event `json:"event"`
}
