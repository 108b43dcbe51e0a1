package messagequeue

import (
	"encoding/json"
	"fmt"

	"github.com/Strob0t/TestRelay/internal/domain/trigger"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects pass validation
// (future-proof for new message types).
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	switch subject {
	case SubjectRuns:
		var p RunRequestPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.Event.Type != "" && !trigger.KnownEventType(p.Event.Type) {
			return fmt.Errorf("schema validation failed for %s: unknown event type %q", subject, p.Event.Type)
		}
		return nil
	default:
		return nil
	}
}
