package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/Strob0t/TestRelay/internal/adapter/otel"
	"github.com/Strob0t/TestRelay/internal/adapter/ws"
	"github.com/Strob0t/TestRelay/internal/domain"
	"github.com/Strob0t/TestRelay/internal/domain/gate"
	"github.com/Strob0t/TestRelay/internal/domain/trigger"
	"github.com/Strob0t/TestRelay/internal/logger"
	"github.com/Strob0t/TestRelay/internal/port/broadcast"
	"github.com/Strob0t/TestRelay/internal/port/hosting"
)

// Pipeline composes the three stages of one trigger run: the authorization
// gate, the merge-commit wait and the downstream dispatch. Each run is an
// independent unit of work; the only state shared across runs is the per-PR
// supersede registry.
type Pipeline struct {
	gate       *gate.Gate
	classifier Classifier
	waiter     *MergeCommitWaiter
	dispatcher *DispatchTrigger
	labels     hosting.LabelRemover

	downstreamRepo string
	workflowRef    string
	triggerLabel   string

	hub     broadcast.Broadcaster
	metrics *otel.Metrics

	mu       sync.Mutex
	inflight map[int]*runHandle
}

// runHandle identifies one in-flight run so a finished run only deregisters
// itself, never a successor that superseded it.
type runHandle struct {
	cancel context.CancelFunc
}

// NewPipeline assembles the run pipeline. hub, labels and metrics are
// optional; a nil value disables that concern.
func NewPipeline(
	g *gate.Gate,
	classifier Classifier,
	waiter *MergeCommitWaiter,
	dispatcher *DispatchTrigger,
	labels hosting.LabelRemover,
	downstreamRepo, workflowRef, triggerLabel string,
	hub broadcast.Broadcaster,
	metrics *otel.Metrics,
) *Pipeline {
	return &Pipeline{
		gate:           g,
		classifier:     classifier,
		waiter:         waiter,
		dispatcher:     dispatcher,
		labels:         labels,
		downstreamRepo: downstreamRepo,
		workflowRef:    workflowRef,
		triggerLabel:   triggerLabel,
		hub:            hub,
		metrics:        metrics,
		inflight:       make(map[int]*runHandle),
	}
}

// Run executes one pipeline run for the event. A newer run for the same
// pull request cancels any run still in flight, so the waiter never keeps
// polling for a commit that a fresh push already made stale.
//
// The returned report is always populated; the error classifies the terminal
// outcome per the domain taxonomy (nil means dispatch accepted).
func (p *Pipeline) Run(ctx context.Context, ev trigger.Event) (trigger.RunReport, error) {
	runID := logger.RunID(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = logger.WithRunID(ctx, runID)
	}

	report := trigger.RunReport{
		RunID:      runID,
		Event:      ev,
		MergeState: trigger.MergeCommitState{Outcome: trigger.MergePending},
	}

	ctx, cancel := context.WithCancel(ctx)
	handle := p.supersede(ev.PullNumber, cancel)
	defer p.finish(ev.PullNumber, handle)

	ctx, span := otel.StartRunSpan(ctx, runID, ev.PullNumber)
	defer span.End()

	p.broadcast(ctx, ws.EventRunStarted, report)
	slog.Info("run started",
		"run_id", runID, "event", ev.Type, "actor", ev.ActorLogin, "pull", ev.PullNumber)

	// Stage 1: authorization gate.
	report.Decision = p.gate.Decide(ctx, ev)
	if !report.Decision.Allowed {
		p.count(ctx, p.metricOrNil().GateDenied)
		p.broadcast(ctx, ws.EventRunDenied, report)
		slog.Info("run denied", "run_id", runID, "reason", report.Decision.Reason)
		if report.Decision.Reason == trigger.ReasonPermissionCheck {
			return report, fmt.Errorf("pull %d: %w", ev.PullNumber, domain.ErrPermissionCheck)
		}
		return report, fmt.Errorf("pull %d: %s: %w", ev.PullNumber, report.Decision.Reason, domain.ErrGateDenied)
	}
	p.count(ctx, p.metricOrNil().GateAllowed)

	// External collaborators: changed-file classification.
	categories, err := p.classifier.ClassifyChangedFiles(ctx, ev.PullNumber)
	if err != nil {
		return report, fmt.Errorf("pull %d: %w", ev.PullNumber, err)
	}

	// Stage 2: wait for the merge commit.
	waitStart := time.Now()
	report.MergeState = p.waiter.Wait(ctx, ev.PullNumber)
	p.observeWait(ctx, time.Since(waitStart), report.MergeState.Polls)

	switch report.MergeState.Outcome {
	case trigger.MergeAvailable:
	case trigger.MergeUnmergeable:
		return report, fmt.Errorf("pull %d: %w", ev.PullNumber, domain.ErrUnmergeable)
	case trigger.MergeTimedOut:
		return report, fmt.Errorf("pull %d after %s: %w, please retry",
			ev.PullNumber, p.waiter.deadline, domain.ErrMergeTimeout)
	case trigger.MergePollError:
		return report, fmt.Errorf("pull %d: %w", ev.PullNumber, domain.ErrMergePoll)
	default:
		// Pending here means this run was superseded or shut down.
		return report, fmt.Errorf("pull %d wait interrupted: %w", ev.PullNumber, ctx.Err())
	}

	// Stage 3: dispatch. Guarded by construction: only reached with an
	// allowed decision and an available merge commit.
	req := trigger.DispatchRequest{
		DownstreamRepo: p.downstreamRepo,
		WorkflowRef:    p.workflowRef,
		CorrelationID:  trigger.CorrelationID(ev.PullNumber, report.MergeState.SHA),
		PullNumber:     ev.PullNumber,
		MergeCommitSHA: report.MergeState.SHA,
		Categories:     categories,
	}

	dispatchCtx, dispatchSpan := otel.StartDispatchSpan(ctx, req.CorrelationID, req.DownstreamRepo)
	outcome, err := p.dispatcher.Dispatch(dispatchCtx, req)
	dispatchSpan.End()
	report.Dispatch = &outcome

	if err != nil {
		p.count(ctx, p.metricOrNil().DispatchFailed)
		p.broadcast(ctx, ws.EventRunFailed, report)
		return report, err
	}

	p.count(ctx, p.metricOrNil().DispatchAccepted)
	p.broadcast(ctx, ws.EventRunDispatched, report)
	slog.Info("run dispatched",
		"run_id", runID, "correlation_id", outcome.CorrelationID, "sha", req.MergeCommitSHA)

	p.removeTriggerLabel(ctx, ev)

	return report, nil
}

// supersede registers this run for the pull request, cancelling any run
// still in flight for it.
func (p *Pipeline) supersede(pullNumber int, cancel context.CancelFunc) *runHandle {
	handle := &runHandle{cancel: cancel}

	p.mu.Lock()
	prev, ok := p.inflight[pullNumber]
	p.inflight[pullNumber] = handle
	p.mu.Unlock()

	if ok {
		slog.Info("superseding in-flight run", "pull", pullNumber)
		prev.cancel()
	}
	return handle
}

// finish removes the registration if this run still owns it.
func (p *Pipeline) finish(pullNumber int, handle *runHandle) {
	p.mu.Lock()
	if p.inflight[pullNumber] == handle {
		delete(p.inflight, pullNumber)
	}
	p.mu.Unlock()
	handle.cancel()
}

// removeTriggerLabel clears the one-shot trigger label after a successful
// dispatch. Best effort: the dispatch already happened.
func (p *Pipeline) removeTriggerLabel(ctx context.Context, ev trigger.Event) {
	if p.labels == nil || !ev.HasLabel(p.triggerLabel) {
		return
	}
	if err := p.labels.RemoveLabel(ctx, ev.PullNumber, p.triggerLabel); err != nil {
		slog.Warn("trigger label removal failed", "pull", ev.PullNumber, "error", err)
	}
}

func (p *Pipeline) broadcast(ctx context.Context, eventType string, report trigger.RunReport) {
	if p.hub != nil {
		p.hub.BroadcastEvent(ctx, eventType, report)
	}
}

func (p *Pipeline) metricOrNil() *otel.Metrics {
	if p.metrics == nil {
		return &otel.Metrics{}
	}
	return p.metrics
}

// count increments an optional counter; metrics may be disabled.
func (p *Pipeline) count(ctx context.Context, c metric.Int64Counter) {
	if c != nil {
		c.Add(ctx, 1)
	}
}

// observeWait records the wait duration and poll count when metrics are on.
func (p *Pipeline) observeWait(ctx context.Context, elapsed time.Duration, polls int) {
	m := p.metricOrNil()
	if m.WaitDuration != nil {
		m.WaitDuration.Record(ctx, elapsed.Seconds())
	}
	if m.MergePolls != nil {
		m.MergePolls.Add(ctx, int64(polls))
	}
}
