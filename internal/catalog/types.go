// Package catalog defines core types shared across subsystems.
package catalog

import "time"

// RunMode selects how much of a supplier's site a run covers.
type RunMode string

// Run modes accepted by the orchestrator.
const (
	ModeFullCatalog RunMode = "full_catalog"
	ModeDealsOnly   RunMode = "deals_only"
)

// Valid reports whether the mode is one the orchestrator accepts.
func (m RunMode) Valid() bool {
	return m == ModeFullCatalog || m == ModeDealsOnly
}

// JobStatus represents the lifecycle state of a scrape job.
type JobStatus string

// Job status values persisted in the job store.
const (
	JobStatusPending  JobStatus = "pending"
	JobStatusRunning  JobStatus = "running"
	JobStatusComplete JobStatus = "complete"
	JobStatusFailed   JobStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusComplete || s == JobStatusFailed
}

// ScrapeJob is the audit record persisted for each supplier run. Rows are
// never deleted; a finished run always leaves exactly one terminal row.
type ScrapeJob struct {
	ID         string     `json:"id"`
	Supplier   string     `json:"supplier"`
	Mode       RunMode    `json:"mode"`
	Status     JobStatus  `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Summary    JobSummary `json:"summary"`
}

// JobSummary captures the outcome counts written at job finalization.
type JobSummary struct {
	Products   int      `json:"products"`
	Deals      int      `json:"deals"`
	Coupons    int      `json:"coupons"`
	Errors     []string `json:"errors,omitempty"`
	DurationMs int64    `json:"duration_ms"`
}

// Product is a supplier-scoped catalog listing, keyed by (supplier, sku)
// for idempotent upsert.
type Product struct {
	Supplier  string    `json:"supplier"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	WasPrice  float64   `json:"was_price,omitempty"`
	Currency  string    `json:"currency"`
	URL       string    `json:"url"`
	ImageURL  string    `json:"image_url,omitempty"`
	InStock   bool      `json:"in_stock"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// Deal is a time-bounded discounted offer, distinct from the product's
// standard listing. Active is derived from ExpiresAt and reconciled by the
// batch runner's cleanup pass.
type Deal struct {
	Supplier  string    `json:"supplier"`
	SKU       string    `json:"sku"`
	Title     string    `json:"title"`
	Price     float64   `json:"price"`
	WasPrice  float64   `json:"was_price,omitempty"`
	URL       string    `json:"url"`
	StartsAt  time.Time `json:"starts_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Active    bool      `json:"active"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// Coupon is a voucher code with a validity window, keyed by
// (supplier, code).
type Coupon struct {
	Supplier    string    `json:"supplier"`
	Code        string    `json:"code"`
	Description string    `json:"description,omitempty"`
	Discount    string    `json:"discount,omitempty"`
	ValidFrom   time.Time `json:"valid_from"`
	ExpiresAt   time.Time `json:"expires_at"`
	URL         string    `json:"url,omitempty"`
	ScrapedAt   time.Time `json:"scraped_at"`
}

// Supplier identifies a scrape target. LastScrapedAt moves only on a
// successful run.
type Supplier struct {
	Slug          string     `json:"slug"`
	Name          string     `json:"name"`
	LastScrapedAt *time.Time `json:"last_scraped_at,omitempty"`
}

// FullCatalogResult is the output of a full_catalog run. Item-level parse
// failures land in Errors rather than aborting the run.
type FullCatalogResult struct {
	Products []Product
	Deals    []Deal
	Coupons  []Coupon
	Errors   []string
	Duration time.Duration
}

// DealsOnlyResult is the output of a deals_only run. It carries no product
// field at all, so the faster mode cannot leak catalog rows by accident.
type DealsOnlyResult struct {
	Deals    []Deal
	Coupons  []Coupon
	Errors   []string
	Duration time.Duration
}

// RunReport is what the orchestrator returns to its caller for one
// supplier run, successful or not.
type RunReport struct {
	JobID    string        `json:"job_id,omitempty"`
	Supplier string        `json:"supplier"`
	Mode     RunMode       `json:"mode"`
	Success  bool          `json:"success"`
	Products int           `json:"products"`
	Deals    int           `json:"deals"`
	Coupons  int           `json:"coupons"`
	Errors   []string      `json:"errors,omitempty"`
	Duration time.Duration `json:"duration_ms"`
}

// Summary converts a report into the persisted job summary.
func (r RunReport) Summary() JobSummary {
	return JobSummary{
		Products:   r.Products,
		Deals:      r.Deals,
		Coupons:    r.Coupons,
		Errors:     r.Errors,
		DurationMs: r.Duration.Milliseconds(),
	}
}

// BatchSummary aggregates one full batch run over every registered
// supplier plus the expiry cleanup that follows it.
type BatchSummary struct {
	Reports          []RunReport   `json:"reports"`
	DealsDeactivated int64         `json:"deals_deactivated"`
	Duration         time.Duration `json:"duration_ms"`
}

// Succeeded counts the reports that finished without a run-fatal error.
func (b BatchSummary) Succeeded() int {
	n := 0
	for _, r := range b.Reports {
		if r.Success {
			n++
		}
	}
	return n
}
