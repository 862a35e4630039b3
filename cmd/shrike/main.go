// Shrike - Caller reputation and screening that deploys in 60 seconds.
// Copyright (c) 2025 opencomm
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opencomm/shrike/internal/api"
	"github.com/opencomm/shrike/internal/bus"
	"github.com/opencomm/shrike/internal/cache"
	"github.com/opencomm/shrike/internal/classifier"
	"github.com/opencomm/shrike/internal/domain"
	"github.com/opencomm/shrike/internal/feature"
	"github.com/opencomm/shrike/internal/feedback"
	"github.com/opencomm/shrike/internal/fusion"
	"github.com/opencomm/shrike/internal/pattern"
	"github.com/opencomm/shrike/internal/reputation"
	"github.com/opencomm/shrike/internal/repository"
	"github.com/opencomm/shrike/internal/screening"
	"github.com/opencomm/shrike/internal/velocity"
	"github.com/opencomm/shrike/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("SHRIKE_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting shrike",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("SHRIKE_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}
	applyEnvOverrides(cfg)

	// Invalid configuration is the only startup failure the engine allows
	// itself; everything downstream degrades instead of failing.
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize reputation backend (optional)
	var backend domain.ReputationBackend
	if cfg.Backend.BaseURL != "" {
		backend = reputation.NewHTTPBackend(cfg.Backend)
		slog.Info("reputation backend configured", "base_url", cfg.Backend.BaseURL)
	} else {
		slog.Info("no reputation backend configured, running local-only")
	}

	// Initialize Reputation Store
	store := reputation.NewStore(repo, cacheImpl, backend)
	if backend != nil {
		if err := store.SyncBlocklist(ctx); err != nil {
			slog.Warn("initial blocklist sync failed", "error", err)
		}
	}

	// Initialize call-frequency tracker
	tracker := velocity.NewTracker(cacheImpl, velocity.DefaultWindow)

	// Initialize custom rule engine
	rules, err := pattern.NewCustomRules()
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}

	// Load rules from database (no hardcoded defaults - configure via API)
	if err := loadRulesFromDatabase(ctx, repo, rules); err != nil {
		slog.Error("failed to load rules", "error", err)
		os.Exit(1)
	}
	slog.Info("rule engine initialized", "rules_count", rules.RuleCount())

	// Initialize Pattern Analyzer
	analyzer := pattern.NewAnalyzer(cfg.Screening, rules, func(ctx context.Context, number string) int64 {
		return tracker.Observe(ctx, number)
	})

	// Initialize Feature Extractor and Classifier
	extractor := feature.NewExtractor(cfg.Screening.SpamKeywords)
	clf := classifier.New(cfg.Screening.ModelPath)

	// Initialize Fusion Engine
	fusionEngine := fusion.NewEngine(cfg.Screening)

	// Initialize Screener
	screener := screening.NewScreener(
		cfg.Screening,
		extractor,
		analyzer,
		store,
		clf,
		fusionEngine,
		repo,
		busImpl,
	)
	slog.Info("screening pipeline initialized",
		"spam_threshold", cfg.Screening.SpamThreshold,
		"block_threshold", cfg.Screening.BlockThreshold,
		"pipeline_timeout", cfg.Screening.PipelineTimeout,
	)

	// Initialize Feedback Recorder
	recorder := feedback.NewRecorder(repo, busImpl, store, extractor)

	// Initialize feedback worker
	feedbackWorker := worker.New(busImpl, clf, worker.DefaultRetrainBatchSize)
	if err := feedbackWorker.Start(ctx); err != nil {
		slog.Error("failed to start feedback worker", "error", err)
		os.Exit(1)
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, screener, recorder, store, rules, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("shrike is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	feedbackWorker.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("shrike shutdown complete")
}

// applyEnvOverrides layers environment settings over the tier defaults.
func applyEnvOverrides(cfg *domain.Config) {
	if v := os.Getenv("SHRIKE_DB_PATH"); v != "" {
		cfg.Repository.SQLitePath = v
	}
	if v := os.Getenv("SHRIKE_MODEL_PATH"); v != "" {
		cfg.Screening.ModelPath = v
	}
	if v := os.Getenv("SHRIKE_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("SHRIKE_NATS_URL"); v != "" {
		cfg.EventBus.NATSUrl = v
	}
	if v := os.Getenv("SHRIKE_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("SHRIKE_POSTGRES_HOST"); v != "" {
		cfg.Repository.PostgresHost = v
	}
	if v := os.Getenv("SHRIKE_POSTGRES_USER"); v != "" {
		cfg.Repository.PostgresUser = v
	}
	if v := os.Getenv("SHRIKE_POSTGRES_PASSWORD"); v != "" {
		cfg.Repository.PostgresPassword = v
	}
}

// loadRulesFromDatabase loads custom rules from the database into the engine.
// All rules must be configured via POST /rules API - no hardcoded defaults.
func loadRulesFromDatabase(ctx context.Context, repo domain.Repository, rules *pattern.CustomRules) error {
	dbRules, err := repo.ListRuleConfigs(ctx)
	if err != nil {
		slog.Warn("failed to list rules from database", "error", err)
		return nil // Start with empty rules - they can be added via API
	}

	if len(dbRules) > 0 {
		slog.Info("loading rules from database", "count", len(dbRules))
		return rules.ReloadRules(dbRules)
	}

	slog.Info("no rules in database - configure via POST /rules API")
	return nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🐦 SHRIKE                   ║")
	fmt.Println("  ║     Caller Screening Engine               ║")
	fmt.Println("  ║      Every call earns its ring.           ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /screen/call           - Screen an incoming call")
	fmt.Println("    POST /screen/message        - Screen a message body")
	fmt.Println("    GET  /decisions/{id}        - Get a screening decision")
	fmt.Println("    POST /feedback              - Record a user correction")
	fmt.Println("    GET  /reputation/{number}   - Inspect a number's analysis")
	fmt.Println("    POST /reputation/report     - Report a spam number")
	fmt.Println("    GET  /blocklist             - List blocked numbers")
	fmt.Println("    POST /blocklist             - Block a number")
	fmt.Println("    DELETE /blocklist/{number}  - Unblock a number")
	fmt.Println("    POST /contacts              - Save a known contact")
	fmt.Println("    GET  /stats                 - Running statistics")
	fmt.Println("    GET  /rules                 - List custom rules")
	fmt.Println("    POST /rules                 - Create a custom rule")
	fmt.Println("    POST /rules/reload          - Hot-reload rules from database")
	fmt.Println("    GET  /health                - Health check")
	fmt.Println()
}
