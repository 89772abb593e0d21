// Package batch drives sequential scrape runs over every registered
// supplier, followed by deal-expiry reconciliation.
package batch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sparkmate/dealscraper/internal/catalog"
	"github.com/sparkmate/dealscraper/internal/metrics"
)

// Orchestrator runs one supplier through one mode. Satisfied by
// *orchestrator.Orchestrator.
type Orchestrator interface {
	Run(ctx context.Context, slug string, mode catalog.RunMode) catalog.RunReport
}

// Config controls batch pacing.
type Config struct {
	Mode catalog.RunMode

	// Cooldown is the pause between supplier runs. Suppliers are scraped
	// sequentially with this spacing to stay under anti-scraping
	// thresholds; it is a correctness requirement for continued access,
	// not a tuning knob.
	Cooldown time.Duration

	// RunTimeout bounds one supplier run. Zero disables the bound.
	RunTimeout time.Duration
}

// Runner iterates registered suppliers in registration order. A supplier
// failure never stops the batch; only cancellation of the batch context
// does.
type Runner struct {
	registry *catalog.Registry
	orch     Orchestrator
	store    catalog.Store
	clock    catalog.Clock
	sleeper  catalog.Sleeper
	cfg      Config
	logger   *zap.Logger
}

// New constructs a Runner.
func New(
	registry *catalog.Registry,
	orch Orchestrator,
	store catalog.Store,
	clock catalog.Clock,
	sleeper catalog.Sleeper,
	cfg Config,
	logger *zap.Logger,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Mode.Valid() {
		cfg.Mode = catalog.ModeFullCatalog
	}
	return &Runner{
		registry: registry,
		orch:     orch,
		store:    store,
		clock:    clock,
		sleeper:  sleeper,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run processes every supplier then reconciles deal expiry, returning an
// aggregate summary.
func (r *Runner) Run(ctx context.Context) catalog.BatchSummary {
	metrics.IncBatchRuns()
	start := r.clock.Now()

	slugs := r.registry.Slugs()
	summary := catalog.BatchSummary{Reports: make([]catalog.RunReport, 0, len(slugs))}

	r.logger.Info("batch run started",
		zap.Int("suppliers", len(slugs)),
		zap.String("mode", string(r.cfg.Mode)),
	)

	for i, slug := range slugs {
		if ctx.Err() != nil {
			r.logger.Warn("batch run canceled", zap.String("next_supplier", slug))
			break
		}

		summary.Reports = append(summary.Reports, r.runOne(ctx, slug))

		if i < len(slugs)-1 && r.cfg.Cooldown > 0 {
			if err := r.sleeper.Sleep(ctx, r.cfg.Cooldown); err != nil {
				r.logger.Warn("batch cooldown interrupted", zap.Error(err))
				break
			}
		}
	}

	summary.DealsDeactivated = r.cleanupExpiredDeals(ctx)
	summary.Duration = r.clock.Now().Sub(start)

	r.logger.Info("batch run finished",
		zap.Int("suppliers", len(summary.Reports)),
		zap.Int("succeeded", summary.Succeeded()),
		zap.Int64("deals_deactivated", summary.DealsDeactivated),
		zap.Duration("duration", summary.Duration),
	)
	return summary
}

func (r *Runner) runOne(ctx context.Context, slug string) catalog.RunReport {
	runCtx := ctx
	cancel := func() {}
	if r.cfg.RunTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.cfg.RunTimeout)
	}
	defer cancel()
	return r.orch.Run(runCtx, slug, r.cfg.Mode)
}

func (r *Runner) cleanupExpiredDeals(ctx context.Context) int64 {
	// Cleanup must run even when the batch was cut short.
	cleanupCtx := context.WithoutCancel(ctx)
	n, err := r.store.DeactivateExpiredDeals(cleanupCtx, r.clock.Now())
	if err != nil {
		r.logger.Error("deal expiry cleanup failed", zap.Error(err))
		return 0
	}
	metrics.AddDealsDeactivated(n)
	if n > 0 {
		r.logger.Info("expired deals deactivated", zap.Int64("count", n))
	}
	return n
}
