// Package domain provides shared domain-level sentinel errors and their
// mapping to process exit codes.
package domain

import "errors"

// ErrGateDenied indicates the event was not authorized to trigger a run.
// A denied gate is an expected terminal outcome, not an infrastructure fault.
var ErrGateDenied = errors.New("gate denied")

// ErrPermissionCheck indicates the collaborator permission lookup itself
// failed. The gate treats this as a denial (fail closed).
var ErrPermissionCheck = errors.New("permission check failed")

// ErrMergeTimeout indicates no merge commit became available before the
// configured deadline.
var ErrMergeTimeout = errors.New("merge commit not available before deadline")

// ErrUnmergeable indicates the hosting platform reported the pull request as
// definitively unmergeable (conflicting, or closed without merge).
var ErrUnmergeable = errors.New("pull request is not mergeable")

// ErrMergePoll indicates the consecutive poll-error budget was exhausted
// while waiting for the merge commit.
var ErrMergePoll = errors.New("merge status polling failed repeatedly")

// ErrDispatchAuth indicates the downstream dispatch credential was rejected.
var ErrDispatchAuth = errors.New("dispatch credential rejected")

// ErrDispatchNotFound indicates the downstream repository or workflow does
// not exist.
var ErrDispatchNotFound = errors.New("downstream repository or workflow not found")

// ErrDispatchRateLimited indicates the dispatch endpoint kept rate-limiting
// after the retry budget was spent.
var ErrDispatchRateLimited = errors.New("dispatch rate limited")

// Process exit codes for the one-shot runner. The calling harness
// distinguishes a denial from a dispatch failure by exit code.
const (
	ExitOK = 0
	// ExitFatal covers configuration and transport setup failures.
	ExitFatal = 1
	ExitDenied = 2
	// ExitMergeUnavailable covers both the deadline elapsing and a
	// definitively unmergeable pull request.
	ExitMergeUnavailable = 3
	ExitMergePoll        = 4
	ExitDispatch         = 5
)

// ExitCode maps a pipeline error to its process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrGateDenied), errors.Is(err, ErrPermissionCheck):
		return ExitDenied
	case errors.Is(err, ErrMergeTimeout), errors.Is(err, ErrUnmergeable):
		return ExitMergeUnavailable
	case errors.Is(err, ErrMergePoll):
		return ExitMergePoll
	case errors.Is(err, ErrDispatchAuth),
		errors.Is(err, ErrDispatchNotFound),
		errors.Is(err, ErrDispatchRateLimited):
		return ExitDispatch
	default:
		return ExitFatal
	}
}
