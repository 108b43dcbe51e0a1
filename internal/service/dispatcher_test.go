package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Strob0t/TestRelay/internal/adapter/github"
	"github.com/Strob0t/TestRelay/internal/domain"
	"github.com/Strob0t/TestRelay/internal/domain/trigger"
	"github.com/Strob0t/TestRelay/internal/port/dispatch"
)

// scriptedDispatcher replays a fixed sequence of responses; the last entry
// repeats forever.
type scriptedDispatcher struct {
	script []error
	calls  int
	inputs []map[string]string
}

func (s *scriptedDispatcher) TriggerWorkflow(_ context.Context, _, _ string, inputs map[string]string) (dispatch.Acceptance, error) {
	i := s.calls
	if i >= len(s.script) {
		i = len(s.script) - 1
	}
	s.calls++
	s.inputs = append(s.inputs, inputs)
	if err := s.script[i]; err != nil {
		return dispatch.Acceptance{}, err
	}
	return dispatch.Acceptance{Accepted: true}, nil
}

// unackedDispatcher returns no error but never acknowledges.
type unackedDispatcher struct{ calls int }

func (u *unackedDispatcher) TriggerWorkflow(context.Context, string, string, map[string]string) (dispatch.Acceptance, error) {
	u.calls++
	return dispatch.Acceptance{Accepted: false}, nil
}

func apiError(status int) error {
	return &github.APIError{StatusCode: status, Body: http.StatusText(status)}
}

func testRequest() trigger.DispatchRequest {
	return trigger.DispatchRequest{
		DownstreamRepo: "acme/acme-extended",
		WorkflowRef:    "main",
		CorrelationID:  trigger.CorrelationID(7, "abc123"),
		PullNumber:     7,
		MergeCommitSHA: "abc123",
		Categories:     trigger.ChangeCategoryMap{"backend": true},
	}
}

func newTestTrigger(wf dispatch.WorkflowDispatcher, maxRetries int) (*DispatchTrigger, *[]time.Duration) {
	d := NewDispatchTrigger(wf, maxRetries, time.Second)
	var slept []time.Duration
	d.sleep = func(_ context.Context, dur time.Duration) error {
		slept = append(slept, dur)
		return nil
	}
	return d, &slept
}

func TestDispatchAccepted(t *testing.T) {
	wf := &scriptedDispatcher{script: []error{nil}}
	d, _ := newTestTrigger(wf, 3)

	out, err := d.Dispatch(context.Background(), testRequest())
	if err != nil {
		t.Fatal(err)
	}
	if !out.Accepted || out.CorrelationID != "pr7-abc123" {
		t.Fatalf("outcome = %+v", out)
	}
	if wf.calls != 1 {
		t.Fatalf("calls = %d, want 1", wf.calls)
	}
	if wf.inputs[0]["merge_commit_sha"] != "abc123" || wf.inputs[0]["changed_backend"] != "true" {
		t.Fatalf("inputs = %v", wf.inputs[0])
	}
}

func TestDispatchRetriesRateLimitThenSucceeds(t *testing.T) {
	wf := &scriptedDispatcher{script: []error{
		apiError(http.StatusTooManyRequests),
		apiError(http.StatusTooManyRequests),
		nil,
	}}
	d, slept := newTestTrigger(wf, 3)

	out, err := d.Dispatch(context.Background(), testRequest())
	if err != nil {
		t.Fatal(err)
	}
	if !out.Accepted {
		t.Fatal("expected acceptance")
	}
	if wf.calls != 3 {
		t.Fatalf("calls = %d, want 3 (exactly one net accepted dispatch)", wf.calls)
	}
	if len(*slept) != 2 || (*slept)[0] != time.Second || (*slept)[1] != 2*time.Second {
		t.Fatalf("backoff = %v, want exponential [1s 2s]", *slept)
	}
}

func TestDispatchRateLimitExhausted(t *testing.T) {
	wf := &scriptedDispatcher{script: []error{apiError(http.StatusTooManyRequests)}}
	d, _ := newTestTrigger(wf, 2)

	_, err := d.Dispatch(context.Background(), testRequest())
	if !errors.Is(err, domain.ErrDispatchRateLimited) {
		t.Fatalf("err = %v, want ErrDispatchRateLimited", err)
	}
	if wf.calls != 3 {
		t.Fatalf("calls = %d, want 3 (initial + 2 retries)", wf.calls)
	}
	if domain.ExitCode(err) != domain.ExitDispatch {
		t.Fatalf("exit code = %d, want %d", domain.ExitCode(err), domain.ExitDispatch)
	}
}

func TestDispatchAuthFailureIsFatal(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		wf := &scriptedDispatcher{script: []error{apiError(status)}}
		d, slept := newTestTrigger(wf, 3)

		out, err := d.Dispatch(context.Background(), testRequest())
		if !errors.Is(err, domain.ErrDispatchAuth) {
			t.Fatalf("status %d: err = %v, want ErrDispatchAuth", status, err)
		}
		if wf.calls != 1 || len(*slept) != 0 {
			t.Fatalf("status %d: bad credential must not be retried (calls=%d)", status, wf.calls)
		}
		if out.CorrelationID != "pr7-abc123" {
			t.Fatalf("failure outcome must carry the correlation ID, got %+v", out)
		}
	}
}

func TestDispatchNotFoundIsFatal(t *testing.T) {
	wf := &scriptedDispatcher{script: []error{apiError(http.StatusNotFound)}}
	d, _ := newTestTrigger(wf, 3)

	_, err := d.Dispatch(context.Background(), testRequest())
	if !errors.Is(err, domain.ErrDispatchNotFound) {
		t.Fatalf("err = %v, want ErrDispatchNotFound", err)
	}
	if wf.calls != 1 {
		t.Fatalf("calls = %d, want 1", wf.calls)
	}
}

func TestDispatchUnacknowledgedIsFatal(t *testing.T) {
	wf := &unackedDispatcher{}
	d, _ := newTestTrigger(wf, 3)

	out, err := d.Dispatch(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected error for unacknowledged dispatch")
	}
	if out.Accepted {
		t.Fatal("outcome must not report acceptance")
	}
	if wf.calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry on unacknowledged)", wf.calls)
	}
}

func TestDispatchTransportErrorIsFatal(t *testing.T) {
	wf := &scriptedDispatcher{script: []error{errors.New("connection refused")}}
	d, _ := newTestTrigger(wf, 3)

	_, err := d.Dispatch(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected error")
	}
	if domain.ExitCode(err) != domain.ExitFatal {
		t.Fatalf("exit code = %d, want %d", domain.ExitCode(err), domain.ExitFatal)
	}
}
