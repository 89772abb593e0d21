// Package orchestrator runs one supplier through one mode, end-to-end,
// with guaranteed job-record finalization.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sparkmate/dealscraper/internal/catalog"
	"github.com/sparkmate/dealscraper/internal/metrics"
)

// Orchestrator owns the ScrapeJob for the duration of one run. It never
// returns an error to its caller: every failure mode ends in a RunReport
// with Success=false and, if a job row was created, a terminal job status.
type Orchestrator struct {
	registry  *catalog.Registry
	store     catalog.Store
	idGen     catalog.IDGenerator
	clock     catalog.Clock
	publisher catalog.Publisher
	logger    *zap.Logger
}

// New constructs an Orchestrator. publisher may be nil.
func New(
	registry *catalog.Registry,
	store catalog.Store,
	idGen catalog.IDGenerator,
	clock catalog.Clock,
	publisher catalog.Publisher,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		registry:  registry,
		store:     store,
		idGen:     idGen,
		clock:     clock,
		publisher: publisher,
		logger:    logger,
	}
}

// Run executes one supplier in one mode. An unresolved slug produces a
// failed report without creating a job row; once a job row exists it
// always reaches exactly one terminal status.
func (o *Orchestrator) Run(ctx context.Context, slug string, mode catalog.RunMode) catalog.RunReport {
	report := catalog.RunReport{Supplier: slug, Mode: mode}

	if !mode.Valid() {
		report.Errors = []string{fmt.Sprintf("unsupported run mode: %s", mode)}
		return report
	}

	factory, ok := o.registry.Resolve(slug)
	if !ok {
		report.Errors = []string{fmt.Sprintf("Unknown supplier: %s", slug)}
		o.logger.Warn("unknown supplier requested", zap.String("supplier", slug))
		return report
	}

	start := o.clock.Now()

	jobID, err := o.idGen.NewID()
	if err != nil {
		report.Errors = []string{fmt.Sprintf("generate job id: %v", err)}
		return report
	}
	job := catalog.ScrapeJob{
		ID:        jobID,
		Supplier:  slug,
		Mode:      mode,
		Status:    catalog.JobStatusRunning,
		StartedAt: start,
	}
	if err := o.store.CreateJob(ctx, job); err != nil {
		report.Errors = []string{fmt.Sprintf("create job: %v", err)}
		o.logger.Error("job creation failed", zap.String("supplier", slug), zap.Error(err))
		return report
	}
	report.JobID = jobID

	o.logger.Info("scrape run started",
		zap.String("supplier", slug),
		zap.String("job_id", jobID),
		zap.String("mode", string(mode)),
	)

	runErr := o.execute(ctx, factory, mode, &report)

	end := o.clock.Now()
	report.Duration = end.Sub(start)

	// Finalization must survive a canceled or timed-out run context.
	finCtx := context.WithoutCancel(ctx)

	status := catalog.JobStatusComplete
	if runErr != nil {
		status = catalog.JobStatusFailed
		report.Success = false
		report.Products, report.Deals, report.Coupons = 0, 0, 0
		report.Errors = append(report.Errors, runErr.Error())
		o.logger.Error("scrape run failed",
			zap.String("supplier", slug),
			zap.String("job_id", jobID),
			zap.Error(runErr),
		)
	} else {
		report.Success = true
		if err := o.store.TouchSupplier(finCtx, slug, end); err != nil {
			// The run itself succeeded; a stale last_scraped_at is
			// recoverable on the next run.
			o.logger.Warn("supplier timestamp update failed",
				zap.String("supplier", slug), zap.Error(err))
		}
	}

	if err := o.store.FinalizeJob(finCtx, jobID, status, end, report.Summary()); err != nil {
		o.logger.Error("job finalization failed",
			zap.String("supplier", slug),
			zap.String("job_id", jobID),
			zap.Error(err),
		)
		report.Success = false
		report.Errors = append(report.Errors, fmt.Sprintf("finalize job: %v", err))
	}

	metrics.ObserveRun(slug, string(mode), string(status), report.Duration)
	metrics.AddItems(slug, "product", report.Products)
	metrics.AddItems(slug, "deal", report.Deals)
	metrics.AddItems(slug, "coupon", report.Coupons)
	metrics.AddItemErrors(slug, len(report.Errors))

	o.publishCompletion(finCtx, report, status)

	o.logger.Info("scrape run finished",
		zap.String("supplier", slug),
		zap.String("job_id", jobID),
		zap.String("status", string(status)),
		zap.Int("products", report.Products),
		zap.Int("deals", report.Deals),
		zap.Int("coupons", report.Coupons),
		zap.Int("errors", len(report.Errors)),
		zap.Duration("duration", report.Duration),
	)
	return report
}

// execute drives the scraper lifecycle and persistence. Any returned
// error is run-fatal for this supplier; panics from scraper
// implementations are converted to errors so a bad supplier cannot take
// down the batch.
func (o *Orchestrator) execute(
	ctx context.Context,
	factory catalog.Factory,
	mode catalog.RunMode,
	report *catalog.RunReport,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scraper panic: %v", r)
		}
	}()

	scraper, err := factory()
	if err != nil {
		return fmt.Errorf("construct scraper: %w", err)
	}

	switch mode {
	case catalog.ModeFullCatalog:
		return o.runFullCatalog(ctx, scraper, report)
	case catalog.ModeDealsOnly:
		return o.runDealsOnly(ctx, scraper, report)
	default:
		return fmt.Errorf("unsupported run mode: %s", mode)
	}
}

func (o *Orchestrator) runFullCatalog(
	ctx context.Context,
	scraper catalog.Scraper,
	report *catalog.RunReport,
) error {
	// ScrapeAll manages its own initialize/close.
	result, err := scraper.ScrapeAll(ctx)
	if err != nil {
		return err
	}
	report.Errors = append(report.Errors, result.Errors...)

	// Products before deals before coupons: a partially-failed persist
	// pass leaves the clearest possible state behind.
	if len(result.Products) > 0 {
		if err := o.store.UpsertProducts(ctx, result.Products); err != nil {
			return fmt.Errorf("persist products: %w", err)
		}
	}
	if len(result.Deals) > 0 {
		if err := o.store.UpsertDeals(ctx, result.Deals); err != nil {
			return fmt.Errorf("persist deals: %w", err)
		}
	}
	if len(result.Coupons) > 0 {
		if err := o.store.UpsertCoupons(ctx, result.Coupons); err != nil {
			return fmt.Errorf("persist coupons: %w", err)
		}
	}

	report.Products = len(result.Products)
	report.Deals = len(result.Deals)
	report.Coupons = len(result.Coupons)
	return nil
}

func (o *Orchestrator) runDealsOnly(
	ctx context.Context,
	scraper catalog.Scraper,
	report *catalog.RunReport,
) error {
	if err := scraper.Initialize(ctx); err != nil {
		if closeErr := scraper.Close(); closeErr != nil {
			o.logger.Warn("scraper close after failed initialize",
				zap.String("supplier", report.Supplier), zap.Error(closeErr))
		}
		return fmt.Errorf("initialize: %w", err)
	}
	defer func() {
		if closeErr := scraper.Close(); closeErr != nil {
			o.logger.Warn("scraper close failed",
				zap.String("supplier", report.Supplier), zap.Error(closeErr))
		}
	}()

	deals, dealErrs, err := scraper.ScrapeDeals(ctx)
	if err != nil {
		return fmt.Errorf("scrape deals: %w", err)
	}
	coupons, couponErrs, err := scraper.ScrapeCoupons(ctx)
	if err != nil {
		return fmt.Errorf("scrape coupons: %w", err)
	}

	result := catalog.DealsOnlyResult{
		Deals:   deals,
		Coupons: coupons,
		Errors:  append(append([]string(nil), dealErrs...), couponErrs...),
	}
	report.Errors = append(report.Errors, result.Errors...)

	if len(result.Deals) > 0 {
		if err := o.store.UpsertDeals(ctx, result.Deals); err != nil {
			return fmt.Errorf("persist deals: %w", err)
		}
	}
	if len(result.Coupons) > 0 {
		if err := o.store.UpsertCoupons(ctx, result.Coupons); err != nil {
			return fmt.Errorf("persist coupons: %w", err)
		}
	}

	report.Deals = len(result.Deals)
	report.Coupons = len(result.Coupons)
	return nil
}

func (o *Orchestrator) publishCompletion(ctx context.Context, report catalog.RunReport, status catalog.JobStatus) {
	if o.publisher == nil {
		return
	}
	payload := map[string]any{
		"job_id":      report.JobID,
		"supplier":    report.Supplier,
		"mode":        string(report.Mode),
		"status":      string(status),
		"products":    report.Products,
		"deals":       report.Deals,
		"coupons":     report.Coupons,
		"errors":      len(report.Errors),
		"duration_ms": report.Duration.Milliseconds(),
		"finished_at": o.clock.Now().Format(time.RFC3339),
	}
	if _, err := o.publisher.Publish(ctx, payload); err != nil {
		// Events are a secondary sink; the job row is the audit trail.
		o.logger.Warn("completion publish failed",
			zap.String("job_id", report.JobID), zap.Error(err))
	}
}
