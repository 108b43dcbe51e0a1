// Package hosting defines the ports onto the code-hosting platform the
// pipeline consumes: permission lookups, merge-status reads, changed-file
// listings, label cleanup and credential acquisition.
package hosting

import "context"

// PermissionChecker answers whether an actor holds write-or-above permission
// on the base repository. Implementations must return an error (not a bare
// false) on lookup failure so the gate can fail closed with the right reason.
type PermissionChecker interface {
	HasWriteAccess(ctx context.Context, login string, repositoryID int64) (bool, error)
}

// MergeStatus is one snapshot of the hosting platform's asynchronously
// computed mergeability for a pull request. Both fields are pointers because
// the platform reports null while the computation is in flight.
type MergeStatus struct {
	MergeCommitSHA *string
	Mergeable      *bool
	// State is the pull request lifecycle state ("open", "closed").
	State string
	// Merged distinguishes a closed-and-merged PR from one closed without
	// merging.
	Merged bool
}

// PullStatusAPI reads a pull request's merge status.
type PullStatusAPI interface {
	MergeStatus(ctx context.Context, pullNumber int) (MergeStatus, error)
}

// ChangeLister returns the file paths touched by a pull request.
type ChangeLister interface {
	ListChangedFiles(ctx context.Context, pullNumber int) ([]string, error)
}

// LabelRemover removes a label from a pull request after dispatch so the
// trigger stays one-shot.
type LabelRemover interface {
	RemoveLabel(ctx context.Context, pullNumber int, label string) error
}

// TokenSource yields a scoped bearer credential for API calls. Issuance and
// refresh are external concerns; the pipeline only consumes tokens.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}
