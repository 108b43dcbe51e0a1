// Package trigger defines the domain types for the cross-repository test
// trigger pipeline: the inbound pull-request event, the gate decision, the
// merge-commit wait state, and the downstream dispatch request.
package trigger

// EventType classifies the pull-request action that fired the pipeline.
type EventType string

const (
	EventOpened      EventType = "opened"
	EventReopened    EventType = "reopened"
	EventSynchronize EventType = "synchronize"
	EventLabeled     EventType = "labeled"
)

// KnownEventType reports whether t is one of the actions the pipeline
// reacts to. Anything else is acknowledged and skipped at the webhook edge.
func KnownEventType(t EventType) bool {
	switch t {
	case EventOpened, EventReopened, EventSynchronize, EventLabeled:
		return true
	}
	return false
}

// Event is a normalized pull-request trigger event. It is constructed once
// per webhook delivery and is immutable afterwards.
type Event struct {
	Type         EventType `json:"type"`
	ActorLogin   string    `json:"actor_login"`
	Labels       []string  `json:"labels"`
	RepositoryID int64     `json:"repository_id"`
	PullNumber   int       `json:"pull_number"`

	// AppliedLabel is the label added by a "labeled" action, empty otherwise.
	AppliedLabel string `json:"applied_label,omitempty"`
	// FromFork is true when the head repository is outside the base
	// repository's trust boundary.
	FromFork bool `json:"from_fork"`
}

// HasLabel reports whether the given label is present on the pull request.
func (e Event) HasLabel(label string) bool {
	for _, l := range e.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// GateDecision is the outcome of the authorization gate. Produced once per
// event; never mutated.
type GateDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// Gate denial reasons, surfaced verbatim in logs and reports.
const (
	ReasonIrrelevantLabel = "irrelevant label"
	ReasonActorBlocked    = "actor blocked"
	ReasonUntrustedFork   = "untrusted fork without explicit trigger"
	ReasonPermissionCheck = "permission check failed"
)
