package http

import (
	"io"
	"net/http"

	"github.com/Strob0t/TestRelay/internal/port/messagequeue"
	"github.com/Strob0t/TestRelay/internal/service"
)

// Handlers bundles the dependencies of the relay's HTTP endpoints.
type Handlers struct {
	Webhook *service.WebhookService
	Queue   messagequeue.Queue
}

// HandleGitHubWebhook handles POST /webhooks/github.
//
// The HMAC middleware has already authenticated the delivery; this handler
// only routes by event type. Anything but pull_request is acknowledged and
// ignored so GitHub does not retry it.
func (h *Handlers) HandleGitHubWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	eventType := r.Header.Get("X-GitHub-Event")
	if eventType != "pull_request" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "event": eventType})
		return
	}

	req, err := h.Webhook.HandleGitHubPullRequest(r.Context(), body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "skipped"})
		return
	}
	writeJSON(w, http.StatusAccepted, req)
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	type healthStatus struct {
		Status string `json:"status"`
		NATS   bool   `json:"nats"`
	}

	status := healthStatus{Status: "ok", NATS: h.Queue != nil && h.Queue.IsConnected()}
	code := http.StatusOK
	if !status.NATS {
		status.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}
