package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Strob0t/TestRelay/internal/adapter/github"
	"github.com/Strob0t/TestRelay/internal/domain"
	"github.com/Strob0t/TestRelay/internal/domain/trigger"
	"github.com/Strob0t/TestRelay/internal/port/dispatch"
)

// DispatchTrigger issues the single downstream workflow-trigger call.
// Rate-limit responses are retried with exponential backoff; every other
// failure is fatal and surfaced with the correlation ID for follow-up.
type DispatchTrigger struct {
	wf          dispatch.WorkflowDispatcher
	maxRetries  int
	backoffBase time.Duration
	sleep       func(ctx context.Context, d time.Duration) error // for testing
}

// NewDispatchTrigger creates a trigger allowing maxRetries rate-limit
// retries with exponential backoff starting at backoffBase.
func NewDispatchTrigger(wf dispatch.WorkflowDispatcher, maxRetries int, backoffBase time.Duration) *DispatchTrigger {
	return &DispatchTrigger{
		wf:          wf,
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
		sleep:       sleepCtx,
	}
}

// Dispatch fires the workflow-trigger call described by req. On acceptance
// exactly one downstream run is enqueued; a successful dispatch is never
// retried.
func (d *DispatchTrigger) Dispatch(ctx context.Context, req trigger.DispatchRequest) (trigger.DispatchOutcome, error) {
	inputs := req.Inputs()

	for attempt := 0; ; attempt++ {
		acc, err := d.wf.TriggerWorkflow(ctx, req.DownstreamRepo, req.WorkflowRef, inputs)
		if err == nil {
			if !acc.Accepted {
				return failedOutcome(req, "dispatch not acknowledged"),
					fmt.Errorf("dispatch %s not acknowledged", req.CorrelationID)
			}
			return trigger.DispatchOutcome{
				Accepted:      true,
				RunID:         acc.RunID,
				CorrelationID: req.CorrelationID,
			}, nil
		}

		var apiErr *github.APIError
		if !errors.As(err, &apiErr) {
			return failedOutcome(req, err.Error()),
				fmt.Errorf("dispatch %s: %w", req.CorrelationID, err)
		}

		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			// Retrying with a bad credential risks a wrongly-scoped run.
			return failedOutcome(req, err.Error()),
				fmt.Errorf("dispatch %s: %w: %v", req.CorrelationID, domain.ErrDispatchAuth, err)
		case http.StatusNotFound:
			return failedOutcome(req, err.Error()),
				fmt.Errorf("dispatch %s: %w: %v", req.CorrelationID, domain.ErrDispatchNotFound, err)
		case http.StatusTooManyRequests:
			if attempt >= d.maxRetries {
				return failedOutcome(req, err.Error()),
					fmt.Errorf("dispatch %s after %d retries: %w: %v",
						req.CorrelationID, d.maxRetries, domain.ErrDispatchRateLimited, err)
			}
			backoff := d.backoffBase << attempt
			slog.Warn("dispatch rate limited, backing off",
				"correlation_id", req.CorrelationID, "attempt", attempt+1, "backoff", backoff)
			if err := d.sleep(ctx, backoff); err != nil {
				return failedOutcome(req, err.Error()),
					fmt.Errorf("dispatch %s: %w", req.CorrelationID, err)
			}
		default:
			return failedOutcome(req, err.Error()),
				fmt.Errorf("dispatch %s: %w", req.CorrelationID, err)
		}
	}
}

func failedOutcome(req trigger.DispatchRequest, msg string) trigger.DispatchOutcome {
	return trigger.DispatchOutcome{
		Accepted:      false,
		CorrelationID: req.CorrelationID,
		Error:         msg,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
