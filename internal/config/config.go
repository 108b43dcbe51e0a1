// Package config provides hierarchical configuration loading for TestRelay.
// Precedence: defaults < YAML file < environment variables.
package config

import (
	"time"

	"github.com/Strob0t/TestRelay/internal/domain/classify"
)

// Config holds all runtime configuration for the relay service.
type Config struct {
	Server   Server   `yaml:"server"`
	NATS     NATS     `yaml:"nats"`
	Logging  Logging  `yaml:"logging"`
	Webhook  Webhook  `yaml:"webhook"`
	GitHub   GitHub   `yaml:"github"`
	Gate     Gate     `yaml:"gate"`
	Waiter   Waiter   `yaml:"waiter"`
	Dispatch Dispatch `yaml:"dispatch"`
	Breaker  Breaker  `yaml:"breaker"`
	Cache    Cache    `yaml:"cache"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port string `yaml:"port"`
	// RateLimitRPS is the sustained per-IP request rate on the webhook
	// endpoint; RateLimitBurst absorbs legitimate delivery bursts.
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// NATS holds NATS JetStream configuration.
type NATS struct {
	URL string `yaml:"url"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// Webhook holds inbound webhook validation configuration.
type Webhook struct {
	GitHubSecret string `yaml:"github_secret"`
}

// GitHub holds hosting API and repository configuration.
type GitHub struct {
	APIBaseURL string `yaml:"api_base_url"`
	Token      string `yaml:"token"`
	// SourceRepo is the "owner/repo" the pull requests live in.
	SourceRepo string `yaml:"source_repo"`
	// DownstreamRepo is the "owner/repo" whose workflow is dispatched.
	DownstreamRepo string `yaml:"downstream_repo"`
	// WorkflowFile is the workflow filename in the downstream repository.
	WorkflowFile string `yaml:"workflow_file"`
	// WorkflowRef is the git ref the downstream workflow runs on.
	WorkflowRef string `yaml:"workflow_ref"`
}

// Gate holds authorization gate configuration.
type Gate struct {
	TriggerLabel string         `yaml:"trigger_label"`
	DeniedActors []string       `yaml:"denied_actors"`
	Categories   classify.Rules `yaml:"categories"`
}

// Waiter holds merge-commit polling configuration.
type Waiter struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	Deadline     time.Duration `yaml:"deadline"`
	// ErrorBudget is the maximum number of consecutive poll errors tolerated
	// before the wait escalates to a hard failure.
	ErrorBudget int `yaml:"error_budget"`
}

// Dispatch holds downstream trigger retry configuration.
type Dispatch struct {
	// MaxRetries bounds rate-limit (429) retries; other failures are fatal.
	MaxRetries  int           `yaml:"max_retries"`
	BackoffBase time.Duration `yaml:"backoff_base"`
}

// Breaker holds circuit breaker configuration for hosting API calls.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Cache holds permission-lookup cache configuration.
type Cache struct {
	PermissionTTL time.Duration `yaml:"permission_ttl"`
	MaxSizeMB     int64         `yaml:"max_size_mb"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:           "8080",
			RateLimitRPS:   5,
			RateLimitBurst: 20,
		},
		NATS: NATS{
			URL: "nats://localhost:4222",
		},
		Logging: Logging{
			Level:   "info",
			Service: "testrelay",
		},
		GitHub: GitHub{
			APIBaseURL:  "https://api.github.com",
			WorkflowRef: "main",
		},
		Gate: Gate{
			TriggerLabel: "Trigger: downstream tests",
			Categories: classify.Rules{
				{Name: "backend", Prefixes: []string{"src/", "migrations/"}},
				{Name: "frontend", Prefixes: []string{"static/", "web/"}},
				{Name: "migrations", Prefixes: []string{"migrations/"}},
			},
		},
		Waiter: Waiter{
			PollInterval: 3 * time.Second,
			Deadline:     8 * time.Minute,
			ErrorBudget:  5,
		},
		Dispatch: Dispatch{
			MaxRetries:  3,
			BackoffBase: 2 * time.Second,
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Cache: Cache{
			PermissionTTL: 5 * time.Minute,
			MaxSizeMB:     8,
		},
	}
}
