package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Strob0t/TestRelay/internal/domain/trigger"
	"github.com/Strob0t/TestRelay/internal/logger"
	"github.com/Strob0t/TestRelay/internal/port/messagequeue"
)

// WebhookService normalizes GitHub pull_request webhook deliveries and
// enqueues accepted ones for the run workers. Deliveries for other actions
// or other repositories are acknowledged and skipped so GitHub does not
// retry them.
type WebhookService struct {
	queue      messagequeue.Queue
	sourceRepo string
}

// NewWebhookService creates a WebhookService accepting deliveries for
// sourceRepo ("owner/repo").
func NewWebhookService(queue messagequeue.Queue, sourceRepo string) *WebhookService {
	return &WebhookService{queue: queue, sourceRepo: sourceRepo}
}

// HandleGitHubPullRequest processes a GitHub pull_request webhook payload.
// It returns the enqueued run request, or nil when the delivery was
// acknowledged but skipped.
func (s *WebhookService) HandleGitHubPullRequest(ctx context.Context, data []byte) (*messagequeue.RunRequestPayload, error) {
	var raw struct {
		Action      string `json:"action"`
		PullRequest struct {
			Number int `json:"number"`
			Labels []struct {
				Name string `json:"name"`
			} `json:"labels"`
			Head struct {
				Repo *struct {
					FullName string `json:"full_name"`
				} `json:"repo"`
			} `json:"head"`
		} `json:"pull_request"`
		Label struct {
			Name string `json:"name"`
		} `json:"label"`
		Repository struct {
			ID       int64  `json:"id"`
			FullName string `json:"full_name"`
		} `json:"repository"`
		Sender struct {
			Login string `json:"login"`
		} `json:"sender"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse github pull_request: %w", err)
	}

	if !trigger.KnownEventType(trigger.EventType(raw.Action)) {
		slog.Debug("pull_request action skipped", "action", raw.Action, "pull", raw.PullRequest.Number)
		return nil, nil
	}
	if raw.Repository.FullName != s.sourceRepo {
		slog.Debug("delivery for unwatched repository skipped",
			"repo", raw.Repository.FullName, "pull", raw.PullRequest.Number)
		return nil, nil
	}

	ev := trigger.Event{
		Type:         trigger.EventType(raw.Action),
		ActorLogin:   raw.Sender.Login,
		RepositoryID: raw.Repository.ID,
		PullNumber:   raw.PullRequest.Number,
		AppliedLabel: raw.Label.Name,
		// A missing head repository (deleted fork) is treated as a fork:
		// the gate must not grant it member trust.
		FromFork: raw.PullRequest.Head.Repo == nil ||
			raw.PullRequest.Head.Repo.FullName != raw.Repository.FullName,
	}
	for _, l := range raw.PullRequest.Labels {
		ev.Labels = append(ev.Labels, l.Name)
	}

	req := &messagequeue.RunRequestPayload{RunID: uuid.NewString(), Event: ev}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode run request: %w", err)
	}

	ctx = logger.WithRunID(ctx, req.RunID)
	if err := s.queue.Publish(ctx, messagequeue.SubjectRuns, payload); err != nil {
		return nil, fmt.Errorf("enqueue run request: %w", err)
	}

	slog.Info("pull_request event enqueued",
		"run_id", req.RunID, "action", ev.Type, "pull", ev.PullNumber, "actor", ev.ActorLogin)
	return req, nil
}
