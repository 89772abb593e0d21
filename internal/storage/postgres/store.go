// Package postgres provides Postgres-backed persistence for the scraper.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sparkmate/dealscraper/internal/catalog"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements catalog.Store against Postgres. All catalog writes are
// natural-key upserts so a re-run after a crash cannot duplicate rows;
// this keying is also what keeps the store safe if suppliers are ever run
// concurrently.
type Store struct {
	pool dbPool
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for
// testing with pgxmock).
func NewWithPool(pool dbPool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// CreateJob inserts a job row in its initial status.
func (s *Store) CreateJob(ctx context.Context, job catalog.ScrapeJob) error {
	if job.ID == "" {
		return fmt.Errorf("job id is required")
	}
	query := `
INSERT INTO scrape_jobs (id, supplier, mode, status, started_at)
VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.pool.Exec(ctx, query,
		job.ID, job.Supplier, string(job.Mode), string(job.Status), job.StartedAt,
	); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// FinalizeJob writes the terminal status and result summary for a job.
func (s *Store) FinalizeJob(
	ctx context.Context,
	jobID string,
	status catalog.JobStatus,
	finishedAt time.Time,
	summary catalog.JobSummary,
) error {
	errorsJSON, err := json.Marshal(summary.Errors)
	if err != nil {
		return fmt.Errorf("marshal job errors: %w", err)
	}
	query := `
UPDATE scrape_jobs
SET status = $2,
	finished_at = $3,
	products = $4,
	deals = $5,
	coupons = $6,
	errors = $7,
	duration_ms = $8
WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query,
		jobID, string(status), finishedAt,
		summary.Products, summary.Deals, summary.Coupons,
		errorsJSON, summary.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("finalize job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finalize job: no row for id %q", jobID)
	}
	return nil
}

// GetJob fetches one job row by ID.
func (s *Store) GetJob(ctx context.Context, jobID string) (catalog.ScrapeJob, error) {
	query := `
SELECT id, supplier, mode, status, started_at, finished_at,
	products, deals, coupons, errors, duration_ms
FROM scrape_jobs
WHERE id = $1`
	var (
		job       catalog.ScrapeJob
		mode      string
		status    string
		errorsRaw []byte
	)
	err := s.pool.QueryRow(ctx, query, jobID).Scan(
		&job.ID, &job.Supplier, &mode, &status, &job.StartedAt, &job.FinishedAt,
		&job.Summary.Products, &job.Summary.Deals, &job.Summary.Coupons,
		&errorsRaw, &job.Summary.DurationMs,
	)
	if err != nil {
		return catalog.ScrapeJob{}, fmt.Errorf("select job: %w", err)
	}
	job.Mode = catalog.RunMode(mode)
	job.Status = catalog.JobStatus(status)
	if len(errorsRaw) > 0 {
		if err := json.Unmarshal(errorsRaw, &job.Summary.Errors); err != nil {
			return catalog.ScrapeJob{}, fmt.Errorf("unmarshal job errors: %w", err)
		}
	}
	return job, nil
}

// UpsertProducts writes products keyed by (supplier, sku).
func (s *Store) UpsertProducts(ctx context.Context, products []catalog.Product) error {
	query := `
INSERT INTO products (supplier, sku, name, price, was_price, currency, url, image_url, in_stock, scraped_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (supplier, sku) DO UPDATE SET
	name = EXCLUDED.name,
	price = EXCLUDED.price,
	was_price = EXCLUDED.was_price,
	currency = EXCLUDED.currency,
	url = EXCLUDED.url,
	image_url = EXCLUDED.image_url,
	in_stock = EXCLUDED.in_stock,
	scraped_at = EXCLUDED.scraped_at`
	for _, p := range products {
		if _, err := s.pool.Exec(ctx, query,
			p.Supplier, p.SKU, p.Name, p.Price, p.WasPrice,
			p.Currency, p.URL, p.ImageURL, p.InStock, p.ScrapedAt,
		); err != nil {
			return fmt.Errorf("upsert product %s/%s: %w", p.Supplier, p.SKU, err)
		}
	}
	return nil
}

// UpsertDeals writes deals keyed by (supplier, sku).
func (s *Store) UpsertDeals(ctx context.Context, deals []catalog.Deal) error {
	query := `
INSERT INTO deals (supplier, sku, title, price, was_price, url, starts_at, expires_at, active, scraped_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (supplier, sku) DO UPDATE SET
	title = EXCLUDED.title,
	price = EXCLUDED.price,
	was_price = EXCLUDED.was_price,
	url = EXCLUDED.url,
	starts_at = EXCLUDED.starts_at,
	expires_at = EXCLUDED.expires_at,
	active = EXCLUDED.active,
	scraped_at = EXCLUDED.scraped_at`
	for _, d := range deals {
		if _, err := s.pool.Exec(ctx, query,
			d.Supplier, d.SKU, d.Title, d.Price, d.WasPrice,
			d.URL, nullableTime(d.StartsAt), nullableTime(d.ExpiresAt), d.Active, d.ScrapedAt,
		); err != nil {
			return fmt.Errorf("upsert deal %s/%s: %w", d.Supplier, d.SKU, err)
		}
	}
	return nil
}

// UpsertCoupons writes coupons keyed by (supplier, code).
func (s *Store) UpsertCoupons(ctx context.Context, coupons []catalog.Coupon) error {
	query := `
INSERT INTO coupons (supplier, code, description, discount, valid_from, expires_at, url, scraped_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (supplier, code) DO UPDATE SET
	description = EXCLUDED.description,
	discount = EXCLUDED.discount,
	valid_from = EXCLUDED.valid_from,
	expires_at = EXCLUDED.expires_at,
	url = EXCLUDED.url,
	scraped_at = EXCLUDED.scraped_at`
	for _, c := range coupons {
		if _, err := s.pool.Exec(ctx, query,
			c.Supplier, c.Code, c.Description, c.Discount,
			nullableTime(c.ValidFrom), nullableTime(c.ExpiresAt), c.URL, c.ScrapedAt,
		); err != nil {
			return fmt.Errorf("upsert coupon %s/%s: %w", c.Supplier, c.Code, err)
		}
	}
	return nil
}

// TouchSupplier records the latest successful scrape time for a supplier.
func (s *Store) TouchSupplier(ctx context.Context, slug string, at time.Time) error {
	query := `
INSERT INTO suppliers (slug, last_scraped_at)
VALUES ($1, $2)
ON CONFLICT (slug) DO UPDATE SET last_scraped_at = EXCLUDED.last_scraped_at`
	if _, err := s.pool.Exec(ctx, query, slug, at); err != nil {
		return fmt.Errorf("touch supplier %s: %w", slug, err)
	}
	return nil
}

// DeactivateExpiredDeals flips active deals whose expiry has passed and
// returns the number of rows changed. Deals stored without an expiry
// stay active until a scrape replaces them.
func (s *Store) DeactivateExpiredDeals(ctx context.Context, asOf time.Time) (int64, error) {
	query := `
UPDATE deals
SET active = false
WHERE active AND expires_at IS NOT NULL AND expires_at < $1`
	tag, err := s.pool.Exec(ctx, query, asOf)
	if err != nil {
		return 0, fmt.Errorf("deactivate expired deals: %w", err)
	}
	return tag.RowsAffected(), nil
}

// nullableTime maps the zero time to SQL NULL so optional timestamps
// round-trip as absent instead of year one.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
