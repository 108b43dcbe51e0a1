// Package gate decides whether a pull-request event is authorized to
// consume privileged credentials and trigger downstream tests.
package gate

import (
	"context"
	"log/slog"

	"github.com/Strob0t/TestRelay/internal/domain/trigger"
	"github.com/Strob0t/TestRelay/internal/port/hosting"
)

// Gate evaluates the authorization rules for trigger events. Evaluation has
// no side effects; the permission lookup is an injected collaborator.
type Gate struct {
	triggerLabel string
	deniedActors map[string]struct{}
	perms        hosting.PermissionChecker
}

// New creates a Gate for the given trigger label and actor deny list.
func New(triggerLabel string, deniedActors []string, perms hosting.PermissionChecker) *Gate {
	denied := make(map[string]struct{}, len(deniedActors))
	for _, a := range deniedActors {
		denied[a] = struct{}{}
	}
	return &Gate{
		triggerLabel: triggerLabel,
		deniedActors: denied,
		perms:        perms,
	}
}

// Decide applies the gate rules in order; the first matching rule wins.
//
//  1. A "labeled" event for anything but the trigger label is irrelevant.
//  2. Actors on the deny list are blocked outright.
//  3. A fork PR needs either write access on the base repository or the
//     human-applied trigger label. A failed permission lookup denies: the
//     gate fails closed, never open.
//  4. Everything else is allowed.
func (g *Gate) Decide(ctx context.Context, ev trigger.Event) trigger.GateDecision {
	if ev.Type == trigger.EventLabeled && ev.AppliedLabel != g.triggerLabel {
		return deny(trigger.ReasonIrrelevantLabel)
	}

	if _, blocked := g.deniedActors[ev.ActorLogin]; blocked {
		return deny(trigger.ReasonActorBlocked)
	}

	if ev.FromFork && !ev.HasLabel(g.triggerLabel) {
		hasWrite, err := g.perms.HasWriteAccess(ctx, ev.ActorLogin, ev.RepositoryID)
		if err != nil {
			slog.Warn("permission lookup failed, denying",
				"actor", ev.ActorLogin, "repository_id", ev.RepositoryID, "error", err)
			return deny(trigger.ReasonPermissionCheck)
		}
		if !hasWrite {
			return deny(trigger.ReasonUntrustedFork)
		}
	}

	return trigger.GateDecision{Allowed: true}
}

func deny(reason string) trigger.GateDecision {
	return trigger.GateDecision{Allowed: false, Reason: reason}
}
