package catalog

import (
	"context"
	"io"
	"time"
)

// Scraper is the capability contract every supplier implementation
// satisfies. An instance serves exactly one run and is then discarded;
// Close must be safe to call after a failed Initialize.
type Scraper interface {
	// Initialize establishes the session or browser context for the run.
	// A failure here aborts the run for this supplier only.
	Initialize(ctx context.Context) error

	// ScrapeAll covers the full catalog. It manages its own session
	// lifecycle and collects item-level failures into the result's
	// Errors rather than aborting on a single bad item.
	ScrapeAll(ctx context.Context) (FullCatalogResult, error)

	// ScrapeDeals returns current deals plus any item-level error
	// strings. The caller is responsible for Initialize/Close.
	ScrapeDeals(ctx context.Context) ([]Deal, []string, error)

	// ScrapeCoupons returns voucher codes plus item-level error strings.
	ScrapeCoupons(ctx context.Context) ([]Coupon, []string, error)

	// Close releases session or browser resources.
	Close() error
}

// Factory constructs a fresh scraper for one run.
type Factory func() (Scraper, error)

// Store is the persistence boundary for jobs, catalog entities, and
// supplier bookkeeping. Upserts must be idempotent on natural keys so a
// re-run after a crash cannot duplicate rows.
type Store interface {
	CreateJob(ctx context.Context, job ScrapeJob) error
	FinalizeJob(ctx context.Context, jobID string, status JobStatus, finishedAt time.Time, summary JobSummary) error
	GetJob(ctx context.Context, jobID string) (ScrapeJob, error)

	UpsertProducts(ctx context.Context, products []Product) error
	UpsertDeals(ctx context.Context, deals []Deal) error
	UpsertCoupons(ctx context.Context, coupons []Coupon) error

	TouchSupplier(ctx context.Context, slug string, at time.Time) error
	DeactivateExpiredDeals(ctx context.Context, asOf time.Time) (int64, error)
}

// BlobStore archives raw artifacts (failed-parse page snapshots) and
// returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Publisher pushes run-completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Sleeper blocks for a duration, honoring context cancellation. The batch
// cooldown goes through this so tests can run without wall-clock waits.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// IDGenerator produces job IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
