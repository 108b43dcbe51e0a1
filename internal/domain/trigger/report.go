package trigger

// RunReport is the structured observability record of one pipeline run. It
// is emitted as a log record and broadcast to connected observers.
type RunReport struct {
	RunID      string           `json:"run_id"`
	Event      Event            `json:"event"`
	Decision   GateDecision     `json:"decision"`
	MergeState MergeCommitState `json:"merge_state"`
	Dispatch   *DispatchOutcome `json:"dispatch,omitempty"`
}
