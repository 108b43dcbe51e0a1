package trigger

// MergeOutcome is the terminal (or pending) phase of the merge-commit wait.
// A state transitions monotonically from Pending to exactly one terminal
// outcome and never regresses.
type MergeOutcome string

const (
	MergePending     MergeOutcome = "pending"
	MergeAvailable   MergeOutcome = "available"
	MergeUnmergeable MergeOutcome = "unmergeable"
	MergeTimedOut    MergeOutcome = "timed_out"
	MergePollError   MergeOutcome = "poll_error"
)

// MergeCommitState is the result of waiting for the hosting platform to
// compute a pull request's merge commit.
type MergeCommitState struct {
	Outcome MergeOutcome `json:"outcome"`
	// SHA is set only when Outcome is MergeAvailable. It is a snapshot: the
	// commit was fetchable at the time of return, with no guarantee beyond.
	SHA string `json:"sha,omitempty"`
	// Polls counts how many merge-status reads were issued.
	Polls int `json:"polls"`
}

// Available reports whether a dispatchable merge commit was obtained.
func (s MergeCommitState) Available() bool {
	return s.Outcome == MergeAvailable && s.SHA != ""
}
