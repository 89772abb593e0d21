// Package main wires together the deal scraper service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/sparkmate/dealscraper/internal/api"
	"github.com/sparkmate/dealscraper/internal/batch"
	"github.com/sparkmate/dealscraper/internal/catalog"
	"github.com/sparkmate/dealscraper/internal/clock/system"
	"github.com/sparkmate/dealscraper/internal/config"
	"github.com/sparkmate/dealscraper/internal/id/uuid"
	"github.com/sparkmate/dealscraper/internal/logging"
	"github.com/sparkmate/dealscraper/internal/metrics"
	"github.com/sparkmate/dealscraper/internal/orchestrator"
	pubsubpublisher "github.com/sparkmate/dealscraper/internal/publisher/pubsub"
	gcsstorage "github.com/sparkmate/dealscraper/internal/storage/gcs"
	localstorage "github.com/sparkmate/dealscraper/internal/storage/local"
	memorystorage "github.com/sparkmate/dealscraper/internal/storage/memory"
	"github.com/sparkmate/dealscraper/internal/storage/postgres"
	"github.com/sparkmate/dealscraper/internal/suppliers"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}
	defer closeStore()

	snapshots, err := buildSnapshotStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("snapshot store init failed", zap.Error(err))
	}

	publisher, stopPublisher, err := buildPublisher(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("publisher init failed", zap.Error(err))
	}
	defer stopPublisher()

	clock := system.New()
	sleeper := system.NewSleeper()
	idGen := uuid.NewGenerator()

	deps := suppliers.Deps{
		Config: suppliers.Config{
			UserAgent:   cfg.Scraper.UserAgent,
			Timeout:     cfg.ScrapeTimeout(),
			Delay:       time.Duration(cfg.Scraper.DelayMs) * time.Millisecond,
			RandomDelay: time.Duration(cfg.Scraper.RandomDelayMs) * time.Millisecond,
			Parallelism: cfg.Scraper.Parallelism,
			DomainRPS:   cfg.Scraper.DomainRPS,
		},
		Clock:          clock,
		Logger:         logger.Named("suppliers"),
		Snapshots:      snapshots,
		SnapshotPrefix: cfg.Storage.SnapshotPrefix,
	}
	registry, err := catalog.NewRegistry(suppliers.Registrations(deps))
	if err != nil {
		logger.Fatal("supplier registry init failed", zap.Error(err))
	}

	orch := orchestrator.New(registry, store, idGen, clock, publisher, logger.Named("orchestrator"))
	runner := batch.New(registry, orch, store, clock, sleeper, batch.Config{
		Mode:       catalog.RunMode(cfg.Batch.Mode),
		Cooldown:   cfg.Cooldown(),
		RunTimeout: cfg.RunTimeout(),
	}, logger.Named("batch"))

	apiServer := api.NewServer(store, orch, runner, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if interval := cfg.BatchInterval(); interval > 0 {
		go runScheduler(ctx, runner, interval, logger.Named("scheduler"))
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// runScheduler drives batch runs on a fixed interval until the root
// context is canceled.
func runScheduler(ctx context.Context, runner *batch.Runner, interval time.Duration, logger *zap.Logger) {
	logger.Info("scheduler started", zap.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			summary := runner.Run(ctx)
			logger.Info("scheduled batch finished",
				zap.Int("suppliers", len(summary.Reports)),
				zap.Int("succeeded", summary.Succeeded()),
				zap.Int64("deals_deactivated", summary.DealsDeactivated),
			)
		}
	}
}

func buildStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (catalog.Store, func(), error) {
	if cfg.DB.DSN == "" {
		logger.Warn("no database configured, using in-memory store")
		return memorystorage.NewStore(), func() {}, nil
	}
	store, err := postgres.New(ctx, postgres.Config{
		DSN:             cfg.DB.DSN,
		MaxConns:        cfg.DB.MaxConns,
		MinConns:        cfg.DB.MinConns,
		MaxConnLifetime: time.Duration(cfg.DB.ConnLifetimeMins) * time.Minute,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	return store, store.Close, nil
}

// buildSnapshotStore picks the archive for failed-parse page snapshots:
// a gs:// bucket, a local directory, or none at all.
func buildSnapshotStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (catalog.BlobStore, error) {
	target := cfg.Storage.SnapshotBucket
	switch {
	case target == "":
		logger.Info("page snapshots disabled")
		return nil, nil
	case strings.HasPrefix(target, "gs://"):
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		return gcsstorage.New(client, gcsstorage.Config{
			Bucket: strings.TrimPrefix(target, "gs://"),
		})
	default:
		return localstorage.New(target)
	}
}

func buildPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (catalog.Publisher, func(), error) {
	if cfg.PubSub.TopicName == "" {
		logger.Info("run-completion publishing disabled")
		return nil, func() {}, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub client: %w", err)
	}
	pub, err := pubsubpublisher.New(client, cfg.PubSub.TopicName)
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub publisher: %w", err)
	}
	return pub, pub.Stop, nil
}
