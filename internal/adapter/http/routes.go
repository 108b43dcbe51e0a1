package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/TestRelay/internal/adapter/ws"
	"github.com/Strob0t/TestRelay/internal/config"
	"github.com/Strob0t/TestRelay/internal/middleware"
)

// MountRoutes registers the relay's routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers, hub *ws.Hub, webhookCfg config.Webhook, rl *middleware.RateLimiter) {
	// Webhooks sit outside any session auth; the HMAC signature is the
	// authentication. The rate limiter runs first so floods are shed
	// before any HMAC work.
	r.With(rl.Handler, middleware.WebhookHMAC(webhookCfg.GitHubSecret, "X-Hub-Signature-256")).
		Post("/webhooks/github", h.HandleGitHubWebhook)

	r.Get("/health", h.HandleHealth)
	r.Get("/ws", hub.HandleWS)
}
