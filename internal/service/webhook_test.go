package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Strob0t/TestRelay/internal/port/messagequeue"
)

type mockQueue struct {
	published []publishedMsg
	err       error
}

type publishedMsg struct {
	subject string
	data    []byte
}

func (m *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, publishedMsg{subject: subject, data: data})
	return nil
}

func (m *mockQueue) Subscribe(context.Context, string, messagequeue.Handler) (func(), error) {
	return func() {}, nil
}

func (m *mockQueue) Drain() error      { return nil }
func (m *mockQueue) Close() error      { return nil }
func (m *mockQueue) IsConnected() bool { return true }

func prPayload(action, headRepo string) []byte {
	return []byte(`{
		"action": "` + action + `",
		"pull_request": {
			"number": 42,
			"labels": [{"name": "bug"}, {"name": "Trigger: downstream tests"}],
			"head": {"repo": {"full_name": "` + headRepo + `"}}
		},
		"label": {"name": "Trigger: downstream tests"},
		"repository": {"id": 7001, "full_name": "owner/repo"},
		"sender": {"login": "contributor"}
	}`)
}

func TestHandleGitHubPullRequestEnqueues(t *testing.T) {
	q := &mockQueue{}
	svc := NewWebhookService(q, "owner/repo")

	req, err := svc.HandleGitHubPullRequest(context.Background(), prPayload("opened", "owner/repo"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req == nil {
		t.Fatal("expected run request")
	}
	if req.RunID == "" {
		t.Fatal("expected assigned run ID")
	}
	if req.Event.PullNumber != 42 {
		t.Fatalf("expected PR 42, got %d", req.Event.PullNumber)
	}
	if req.Event.ActorLogin != "contributor" {
		t.Fatalf("expected 'contributor', got %q", req.Event.ActorLogin)
	}
	if req.Event.RepositoryID != 7001 {
		t.Fatalf("expected repository 7001, got %d", req.Event.RepositoryID)
	}
	if req.Event.FromFork {
		t.Fatal("same-repo head must not be flagged as fork")
	}
	if len(req.Event.Labels) != 2 {
		t.Fatalf("expected 2 labels, got %v", req.Event.Labels)
	}

	if len(q.published) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(q.published))
	}
	if q.published[0].subject != messagequeue.SubjectRuns {
		t.Fatalf("expected subject %q, got %q", messagequeue.SubjectRuns, q.published[0].subject)
	}
	var decoded messagequeue.RunRequestPayload
	if err := json.Unmarshal(q.published[0].data, &decoded); err != nil {
		t.Fatalf("published payload not decodable: %v", err)
	}
	if decoded.RunID != req.RunID || decoded.Event.PullNumber != 42 {
		t.Fatalf("published payload = %+v", decoded)
	}
}

func TestHandleGitHubPullRequestFlagsForkHead(t *testing.T) {
	q := &mockQueue{}
	svc := NewWebhookService(q, "owner/repo")

	req, err := svc.HandleGitHubPullRequest(context.Background(), prPayload("synchronize", "forker/repo"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !req.Event.FromFork {
		t.Fatal("cross-repo head must be flagged as fork")
	}
}

func TestHandleGitHubPullRequestFlagsMissingHeadRepo(t *testing.T) {
	q := &mockQueue{}
	svc := NewWebhookService(q, "owner/repo")

	payload := []byte(`{
		"action": "reopened",
		"pull_request": {"number": 9, "head": {"repo": null}},
		"repository": {"id": 7001, "full_name": "owner/repo"},
		"sender": {"login": "contributor"}
	}`)

	req, err := svc.HandleGitHubPullRequest(context.Background(), payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !req.Event.FromFork {
		t.Fatal("deleted head repository must be flagged as fork")
	}
}

func TestHandleGitHubPullRequestSkipsUnknownAction(t *testing.T) {
	q := &mockQueue{}
	svc := NewWebhookService(q, "owner/repo")

	req, err := svc.HandleGitHubPullRequest(context.Background(), prPayload("assigned", "owner/repo"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req != nil {
		t.Fatalf("expected skip, got %+v", req)
	}
	if len(q.published) != 0 {
		t.Fatal("skipped delivery must not be enqueued")
	}
}

func TestHandleGitHubPullRequestSkipsUnwatchedRepo(t *testing.T) {
	q := &mockQueue{}
	svc := NewWebhookService(q, "owner/other")

	req, err := svc.HandleGitHubPullRequest(context.Background(), prPayload("opened", "owner/repo"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req != nil || len(q.published) != 0 {
		t.Fatal("delivery for another repository must be skipped")
	}
}

func TestHandleGitHubPullRequestRejectsMalformedPayload(t *testing.T) {
	q := &mockQueue{}
	svc := NewWebhookService(q, "owner/repo")

	_, err := svc.HandleGitHubPullRequest(context.Background(), []byte(`{broken`))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "parse github pull_request") {
		t.Fatalf("unexpected error: %v", err)
	}
}
