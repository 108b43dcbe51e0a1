package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "testrelay.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "TESTRELAY_PORT")
	setFloat64(&cfg.Server.RateLimitRPS, "TESTRELAY_RATE_LIMIT_RPS")
	setInt(&cfg.Server.RateLimitBurst, "TESTRELAY_RATE_LIMIT_BURST")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Logging.Level, "TESTRELAY_LOG_LEVEL")
	setString(&cfg.Logging.Service, "TESTRELAY_LOG_SERVICE")
	setString(&cfg.Webhook.GitHubSecret, "TESTRELAY_WEBHOOK_GITHUB_SECRET")
	setString(&cfg.GitHub.APIBaseURL, "TESTRELAY_GITHUB_API_URL")
	setString(&cfg.GitHub.Token, "TESTRELAY_GITHUB_TOKEN")
	setString(&cfg.GitHub.SourceRepo, "TESTRELAY_SOURCE_REPO")
	setString(&cfg.GitHub.DownstreamRepo, "TESTRELAY_DOWNSTREAM_REPO")
	setString(&cfg.GitHub.WorkflowFile, "TESTRELAY_WORKFLOW_FILE")
	setString(&cfg.GitHub.WorkflowRef, "TESTRELAY_WORKFLOW_REF")
	setString(&cfg.Gate.TriggerLabel, "TESTRELAY_TRIGGER_LABEL")
	setStringSlice(&cfg.Gate.DeniedActors, "TESTRELAY_DENIED_ACTORS")
	setDuration(&cfg.Waiter.PollInterval, "TESTRELAY_WAITER_POLL_INTERVAL")
	setDuration(&cfg.Waiter.Deadline, "TESTRELAY_WAITER_DEADLINE")
	setInt(&cfg.Waiter.ErrorBudget, "TESTRELAY_WAITER_ERROR_BUDGET")
	setInt(&cfg.Dispatch.MaxRetries, "TESTRELAY_DISPATCH_MAX_RETRIES")
	setDuration(&cfg.Dispatch.BackoffBase, "TESTRELAY_DISPATCH_BACKOFF_BASE")
	setInt(&cfg.Breaker.MaxFailures, "TESTRELAY_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "TESTRELAY_BREAKER_TIMEOUT")
	setDuration(&cfg.Cache.PermissionTTL, "TESTRELAY_CACHE_PERMISSION_TTL")
	setInt64(&cfg.Cache.MaxSizeMB, "TESTRELAY_CACHE_MAX_SIZE_MB")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Server.RateLimitRPS <= 0 {
		return errors.New("server.rate_limit_rps must be positive")
	}
	if cfg.Server.RateLimitBurst < 1 {
		return errors.New("server.rate_limit_burst must be >= 1")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Gate.TriggerLabel == "" {
		return errors.New("gate.trigger_label is required")
	}
	if cfg.Waiter.PollInterval <= 0 {
		return errors.New("waiter.poll_interval must be positive")
	}
	if cfg.Waiter.Deadline <= 0 {
		return errors.New("waiter.deadline must be positive")
	}
	if cfg.Waiter.ErrorBudget < 1 {
		return errors.New("waiter.error_budget must be >= 1")
	}
	if cfg.Dispatch.MaxRetries < 0 {
		return errors.New("dispatch.max_retries must be >= 0")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*dst = out
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
