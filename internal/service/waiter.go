package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/Strob0t/TestRelay/internal/domain/trigger"
	"github.com/Strob0t/TestRelay/internal/port/hosting"
)

// MergeCommitWaiter polls the hosting API until a pull request's merge
// commit is computed. The platform derives mergeability asynchronously, so
// the first reads after an event frequently return null; the waiter absorbs
// that eventual-consistency window.
type MergeCommitWaiter struct {
	pulls       hosting.PullStatusAPI
	interval    time.Duration
	deadline    time.Duration
	errorBudget int
}

// NewMergeCommitWaiter creates a waiter polling every interval up to
// deadline, tolerating errorBudget consecutive transient poll errors.
func NewMergeCommitWaiter(pulls hosting.PullStatusAPI, interval, deadline time.Duration, errorBudget int) *MergeCommitWaiter {
	return &MergeCommitWaiter{
		pulls:       pulls,
		interval:    interval,
		deadline:    deadline,
		errorBudget: errorBudget,
	}
}

// Wait blocks until the merge commit is available, the pull request is
// definitively unmergeable, the deadline elapses, or the consecutive-error
// budget is exhausted. Cancelling ctx stops the wait promptly; a cancelled
// wait reports MergePending since no terminal outcome was observed.
func (w *MergeCommitWaiter) Wait(ctx context.Context, pullNumber int) trigger.MergeCommitState {
	deadline := time.NewTimer(w.deadline)
	defer deadline.Stop()
	tick := time.NewTicker(w.interval)
	defer tick.Stop()

	consecutiveErrs := 0
	polls := 0

	for {
		if ctx.Err() != nil {
			return trigger.MergeCommitState{Outcome: trigger.MergePending, Polls: polls}
		}

		polls++
		status, err := w.pulls.MergeStatus(ctx, pullNumber)
		if err != nil {
			// Transient poll errors count against the budget, not the
			// outcome. Only a run of them escalates.
			consecutiveErrs++
			slog.Debug("merge status poll failed",
				"pull", pullNumber, "consecutive", consecutiveErrs, "error", err)
			if consecutiveErrs >= w.errorBudget {
				return trigger.MergeCommitState{Outcome: trigger.MergePollError, Polls: polls}
			}
		} else {
			consecutiveErrs = 0

			if status.MergeCommitSHA != nil && *status.MergeCommitSHA != "" {
				return trigger.MergeCommitState{
					Outcome: trigger.MergeAvailable,
					SHA:     *status.MergeCommitSHA,
					Polls:   polls,
				}
			}
			if unmergeable(status) {
				return trigger.MergeCommitState{Outcome: trigger.MergeUnmergeable, Polls: polls}
			}
		}

		select {
		case <-ctx.Done():
			return trigger.MergeCommitState{Outcome: trigger.MergePending, Polls: polls}
		case <-deadline.C:
			return trigger.MergeCommitState{Outcome: trigger.MergeTimedOut, Polls: polls}
		case <-tick.C:
		}
	}
}

// unmergeable reports whether the status is a terminal cannot-merge state:
// mergeability resolved to false, or the PR was closed without merging.
func unmergeable(s hosting.MergeStatus) bool {
	if s.State == "closed" && !s.Merged {
		return true
	}
	return s.Mergeable != nil && !*s.Mergeable
}
