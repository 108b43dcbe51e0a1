package trigger

import "fmt"

// ChangeCategoryMap maps a change category name (e.g. "backend",
// "frontend", "migrations") to whether the pull request touches it. It is
// produced by the path classifier and passed through to the downstream
// workflow unmodified.
type ChangeCategoryMap map[string]bool

// DispatchRequest describes exactly one downstream workflow-trigger call.
// It is constructed only after the merge commit is available and is never
// retried automatically after a successful acceptance.
type DispatchRequest struct {
	DownstreamRepo string            `json:"downstream_repo"`
	WorkflowRef    string            `json:"workflow_ref"`
	CorrelationID  string            `json:"correlation_id"`
	PullNumber     int               `json:"pull_number"`
	MergeCommitSHA string            `json:"merge_commit_sha"`
	Categories     ChangeCategoryMap `json:"categories"`
}

// CorrelationID derives the deterministic dispatch correlation key from the
// pull request state that produced it. Identical (pullNumber, sha) pairs
// always yield the same key, so repeated dispatch attempts for the same
// state can be deduplicated downstream.
func CorrelationID(pullNumber int, mergeSHA string) string {
	short := mergeSHA
	if len(short) > 12 {
		short = short[:12]
	}
	return fmt.Sprintf("pr%d-%s", pullNumber, short)
}

// Inputs flattens the request into the string map a workflow-dispatch
// endpoint accepts. Category flags are rendered as "true"/"false" so the
// downstream pipeline selects test suites without re-deriving file changes.
func (r DispatchRequest) Inputs() map[string]string {
	inputs := map[string]string{
		"merge_commit_sha": r.MergeCommitSHA,
		"correlation_id":   r.CorrelationID,
		"pull_number":      fmt.Sprintf("%d", r.PullNumber),
	}
	for name, changed := range r.Categories {
		inputs["changed_"+name] = fmt.Sprintf("%t", changed)
	}
	return inputs
}

// DispatchOutcome records the result of the single dispatch call.
type DispatchOutcome struct {
	Accepted      bool   `json:"accepted"`
	RunID         string `json:"run_id,omitempty"`
	CorrelationID string `json:"correlation_id"`
	Error         string `json:"error,omitempty"`
}
