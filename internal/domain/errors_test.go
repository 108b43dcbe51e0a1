package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestExitCodeMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"gate denied", ErrGateDenied, ExitDenied},
		{"permission check", ErrPermissionCheck, ExitDenied},
		{"merge timeout", ErrMergeTimeout, ExitMergeUnavailable},
		{"unmergeable", ErrUnmergeable, ExitMergeUnavailable},
		{"poll budget", ErrMergePoll, ExitMergePoll},
		{"dispatch auth", ErrDispatchAuth, ExitDispatch},
		{"dispatch not found", ErrDispatchNotFound, ExitDispatch},
		{"dispatch rate limited", ErrDispatchRateLimited, ExitDispatch},
		{"unknown error", errors.New("connection refused"), ExitFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestExitCodeUnwrapsContext(t *testing.T) {
	wrapped := fmt.Errorf("pull 7: fork without trigger label: %w", ErrGateDenied)
	if got := ExitCode(wrapped); got != ExitDenied {
		t.Errorf("ExitCode(wrapped) = %d, want %d", got, ExitDenied)
	}

	doubly := fmt.Errorf("run failed: %w", fmt.Errorf("pull 7: %w", ErrMergeTimeout))
	if got := ExitCode(doubly); got != ExitMergeUnavailable {
		t.Errorf("ExitCode(doubly wrapped) = %d, want %d", got, ExitMergeUnavailable)
	}
}

func TestExitCodesAreDistinct(t *testing.T) {
	codes := []int{ExitOK, ExitFatal, ExitDenied, ExitMergeUnavailable, ExitMergePoll, ExitDispatch}
	seen := make(map[int]bool, len(codes))
	for _, c := range codes {
		if seen[c] {
			t.Fatalf("exit code %d assigned twice", c)
		}
		seen[c] = true
	}
}
