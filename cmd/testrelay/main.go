package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/Strob0t/TestRelay/internal/adapter/github"
	relayhttp "github.com/Strob0t/TestRelay/internal/adapter/http"
	relaynats "github.com/Strob0t/TestRelay/internal/adapter/nats"
	"github.com/Strob0t/TestRelay/internal/adapter/natskv"
	relayotel "github.com/Strob0t/TestRelay/internal/adapter/otel"
	"github.com/Strob0t/TestRelay/internal/adapter/ristretto"
	"github.com/Strob0t/TestRelay/internal/adapter/tiered"
	"github.com/Strob0t/TestRelay/internal/adapter/ws"
	"github.com/Strob0t/TestRelay/internal/config"
	"github.com/Strob0t/TestRelay/internal/domain"
	"github.com/Strob0t/TestRelay/internal/domain/gate"
	"github.com/Strob0t/TestRelay/internal/domain/trigger"
	"github.com/Strob0t/TestRelay/internal/logger"
	"github.com/Strob0t/TestRelay/internal/middleware"
	"github.com/Strob0t/TestRelay/internal/port/broadcast"
	"github.com/Strob0t/TestRelay/internal/port/cache"
	"github.com/Strob0t/TestRelay/internal/port/hosting"
	"github.com/Strob0t/TestRelay/internal/resilience"
	"github.com/Strob0t/TestRelay/internal/secrets"
	"github.com/Strob0t/TestRelay/internal/service"
)

// tokenEnvKey is the environment variable holding the GitHub API token. The
// vault rereads it on SIGHUP so rotated tokens take effect without a restart.
const tokenEnvKey = "TESTRELAY_GITHUB_TOKEN"

// permBucket is the JetStream KV bucket backing the shared permission cache.
const permBucket = "relay-permissions"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: testrelay <serve|run> [flags]")
		return domain.ExitFatal
	}

	switch args[0] {
	case "serve":
		if err := serve(args[1:]); err != nil {
			slog.Error("fatal", "error", err)
			return domain.ExitFatal
		}
		return domain.ExitOK
	case "run":
		return runOnce(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (want serve or run)\n", args[0])
		return domain.ExitFatal
	}
}

// serve starts the webhook server and the NATS-backed run workers.
func serve(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configFile := fs.String("config", config.DefaultConfigFile, "path to the YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadFrom(*configFile)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	slog.SetDefault(logger.New(cfg.Logging))

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"source_repo", cfg.GitHub.SourceRepo,
		"downstream_repo", cfg.GitHub.DownstreamRepo)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue, err := relaynats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	vault, err := secrets.NewVault(secrets.EnvLoader(tokenEnvKey))
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}
	go reloadOnSIGHUP(ctx, vault)
	tokens := github.NewVaultTokenSource(vault, tokenEnvKey, cfg.GitHub.Token)

	// Permission answers live in an in-process L1 backed by a JetStream KV
	// L2 so replicas share lookups.
	l1, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("permission cache: %w", err)
	}
	defer l1.Close()
	kv, err := queue.KeyValue(ctx, permBucket, cfg.Cache.PermissionTTL)
	if err != nil {
		return fmt.Errorf("permission bucket: %w", err)
	}
	permCache := tiered.New(l1, natskv.New(kv), cfg.Cache.PermissionTTL)

	metrics, err := relayotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	hub := ws.NewHub()
	pipeline, err := buildPipeline(cfg, tokens, permCache, hub, metrics)
	if err != nil {
		return err
	}

	worker := service.NewRunWorker(queue, pipeline)
	stopWorker, err := worker.Start(ctx)
	if err != nil {
		return err
	}
	defer stopWorker()

	handlers := &relayhttp.Handlers{
		Webhook: service.NewWebhookService(queue, cfg.GitHub.SourceRepo),
		Queue:   queue,
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	stopCleanup := limiter.StartCleanup(time.Minute, 10*time.Minute)
	defer stopCleanup()

	r := chi.NewRouter()
	r.Use(middleware.RunID)
	r.Use(relayhttp.Logger)
	r.Use(relayotel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	relayhttp.MountRoutes(r, handlers, hub, cfg.Webhook, limiter)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return queue.Drain()
	})

	return g.Wait()
}

// reloadOnSIGHUP rereads the secret vault whenever the process receives
// SIGHUP, picking up rotated GitHub tokens.
func reloadOnSIGHUP(ctx context.Context, vault *secrets.Vault) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := vault.Reload(); err != nil {
				slog.Error("secret reload failed", "error", err)
				continue
			}
			slog.Info("secrets reloaded")
		}
	}
}

// runOnce executes a single pipeline run from flags and exits with the
// outcome's code. Intended for CI harnesses that react to one event at a
// time without a standing server.
func runOnce(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configFile := fs.String("config", config.DefaultConfigFile, "path to the YAML config file")
	eventType := fs.String("event", "synchronize", "pull_request action (opened, reopened, synchronize, labeled)")
	actor := fs.String("actor", "", "login of the actor who fired the event")
	pull := fs.Int("pull", 0, "pull request number")
	repoID := fs.Int64("repo-id", 0, "numeric ID of the base repository")
	appliedLabel := fs.String("applied-label", "", "label added by a labeled action")
	labels := fs.String("labels", "", "comma-separated labels currently on the pull request")
	fromFork := fs.Bool("fork", false, "whether the head branch lives in a fork")
	if err := fs.Parse(args); err != nil {
		return domain.ExitFatal
	}

	cfg, err := config.LoadFrom(*configFile)
	if err != nil {
		slog.Error("config", "error", err)
		return domain.ExitFatal
	}
	slog.SetDefault(logger.New(cfg.Logging))

	if *pull <= 0 {
		slog.Error("run requires -pull")
		return domain.ExitFatal
	}
	if *actor == "" {
		slog.Error("run requires -actor")
		return domain.ExitFatal
	}
	if !trigger.KnownEventType(trigger.EventType(*eventType)) {
		slog.Error("unknown event type", "event", *eventType)
		return domain.ExitFatal
	}

	ev := trigger.Event{
		Type:         trigger.EventType(*eventType),
		ActorLogin:   *actor,
		RepositoryID: *repoID,
		PullNumber:   *pull,
		AppliedLabel: *appliedLabel,
		FromFork:     *fromFork,
	}
	if *labels != "" {
		for _, l := range strings.Split(*labels, ",") {
			ev.Labels = append(ev.Labels, strings.TrimSpace(l))
		}
	}

	// A single run has no replicas to share lookups with; the in-process
	// cache alone is enough.
	l1, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		slog.Error("setup", "error", err)
		return domain.ExitFatal
	}
	defer l1.Close()

	pipeline, err := buildPipeline(cfg, github.StaticTokenSource(cfg.GitHub.Token), l1, nil, nil)
	if err != nil {
		slog.Error("setup", "error", err)
		return domain.ExitFatal
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = pipeline.Run(ctx, ev)
	if err != nil {
		slog.Error("run failed", "pull", ev.PullNumber, "error", err)
	}
	return domain.ExitCode(err)
}

// buildPipeline assembles the gate, waiter and dispatcher against the GitHub
// API.
func buildPipeline(cfg *config.Config, tokens hosting.TokenSource, permCache cache.Cache, hub *ws.Hub, metrics *relayotel.Metrics) (*service.Pipeline, error) {
	client, err := github.NewClient(cfg.GitHub.APIBaseURL, cfg.GitHub.SourceRepo, tokens)
	if err != nil {
		return nil, fmt.Errorf("github client: %w", err)
	}
	wf, err := github.NewWorkflowClient(cfg.GitHub.APIBaseURL, cfg.GitHub.DownstreamRepo, cfg.GitHub.WorkflowFile, tokens)
	if err != nil {
		return nil, fmt.Errorf("workflow client: %w", err)
	}

	perms := service.NewGuardedPermissions(client, permCache, cfg.Cache.PermissionTTL,
		resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	// A typed nil *ws.Hub must not reach the interface-valued parameter.
	var broadcaster broadcast.Broadcaster
	if hub != nil {
		broadcaster = hub
	}

	pipeline := service.NewPipeline(
		gate.New(cfg.Gate.TriggerLabel, cfg.Gate.DeniedActors, perms),
		service.NewPathClassifier(client, cfg.Gate.Categories),
		service.NewMergeCommitWaiter(client, cfg.Waiter.PollInterval, cfg.Waiter.Deadline, cfg.Waiter.ErrorBudget),
		service.NewDispatchTrigger(wf, cfg.Dispatch.MaxRetries, cfg.Dispatch.BackoffBase),
		client,
		cfg.GitHub.DownstreamRepo,
		cfg.GitHub.WorkflowRef,
		cfg.Gate.TriggerLabel,
		broadcaster,
		metrics,
	)
	return pipeline, nil
}
