package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Strob0t/TestRelay/internal/domain"
	"github.com/Strob0t/TestRelay/internal/logger"
	"github.com/Strob0t/TestRelay/internal/port/messagequeue"
)

// RunWorker consumes run requests from the queue and executes the pipeline.
// Each request runs in its own goroutine: a run can block on the merge wait
// for minutes, and a newer request for the same pull request must be able to
// land and supersede it meanwhile.
type RunWorker struct {
	queue    messagequeue.Queue
	pipeline *Pipeline
	wg       sync.WaitGroup
}

// NewRunWorker creates a worker executing runs on the given pipeline.
func NewRunWorker(queue messagequeue.Queue, pipeline *Pipeline) *RunWorker {
	return &RunWorker{queue: queue, pipeline: pipeline}
}

// Start subscribes to the run subject. The returned stop function cancels
// the subscription and waits for in-flight runs to finish; cancelling ctx
// aborts the runs themselves.
func (w *RunWorker) Start(ctx context.Context) (func(), error) {
	cancelSub, err := w.queue.Subscribe(ctx, messagequeue.SubjectRuns, w.handle(ctx))
	if err != nil {
		return nil, fmt.Errorf("run subscriber: %w", err)
	}
	slog.Info("run worker started", "subject", messagequeue.SubjectRuns)
	return func() {
		cancelSub()
		w.wg.Wait()
	}, nil
}

func (w *RunWorker) handle(base context.Context) messagequeue.Handler {
	return func(msgCtx context.Context, _ string, data []byte) error {
		var req messagequeue.RunRequestPayload
		if err := json.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("decode run request: %w", err)
		}
		if req.Event.PullNumber == 0 {
			return fmt.Errorf("run request missing pull number")
		}

		// Prefer the run ID stamped into the payload; the message header
		// is a fallback for requests enqueued out of band.
		runCtx := base
		switch {
		case req.RunID != "":
			runCtx = logger.WithRunID(base, req.RunID)
		case logger.RunID(msgCtx) != "":
			runCtx = logger.WithRunID(base, logger.RunID(msgCtx))
		}

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			report, err := w.pipeline.Run(runCtx, req.Event)
			if err != nil {
				slog.Warn("run completed with error",
					"run_id", report.RunID,
					"pull", req.Event.PullNumber,
					"exit_code", domain.ExitCode(err),
					"error", err)
				return
			}
			slog.Info("run completed",
				"run_id", report.RunID, "pull", req.Event.PullNumber)
		}()
		return nil
	}
}
