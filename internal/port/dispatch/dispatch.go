// Package dispatch defines the port onto the downstream repository's
// workflow-trigger endpoint.
package dispatch

import "context"

// Acceptance is the downstream endpoint's acknowledgement of a trigger call.
type Acceptance struct {
	Accepted bool
	// RunID identifies the enqueued downstream run when the endpoint
	// reports one; some endpoints acknowledge without an identifier.
	RunID string
}

// WorkflowDispatcher issues a single "run this workflow with these inputs"
// call against a downstream repository.
type WorkflowDispatcher interface {
	TriggerWorkflow(ctx context.Context, repo, ref string, inputs map[string]string) (Acceptance, error)
}
