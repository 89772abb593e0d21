// Package memory provides in-memory persistence for development/testing.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sparkmate/dealscraper/internal/catalog"
)

// Store implements catalog.Store entirely in memory. Catalog rows are
// keyed by natural key, so repeated upserts stay idempotent just like the
// Postgres store.
type Store struct {
	mu        sync.RWMutex
	jobs      map[string]catalog.ScrapeJob
	jobOrder  []string
	products  map[string]catalog.Product
	deals     map[string]catalog.Deal
	coupons   map[string]catalog.Coupon
	suppliers map[string]time.Time
}

// NewStore constructs a Store.
func NewStore() *Store {
	return &Store{
		jobs:      make(map[string]catalog.ScrapeJob),
		products:  make(map[string]catalog.Product),
		deals:     make(map[string]catalog.Deal),
		coupons:   make(map[string]catalog.Coupon),
		suppliers: make(map[string]time.Time),
	}
}

func naturalKey(supplier, id string) string {
	return supplier + "\x00" + id
}

// CreateJob stores a new job row.
func (s *Store) CreateJob(_ context.Context, job catalog.ScrapeJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return errors.New("job already exists")
	}
	s.jobs[job.ID] = job
	s.jobOrder = append(s.jobOrder, job.ID)
	return nil
}

// FinalizeJob writes the terminal status and summary for a job.
func (s *Store) FinalizeJob(
	_ context.Context,
	jobID string,
	status catalog.JobStatus,
	finishedAt time.Time,
	summary catalog.JobSummary,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return errors.New("job not found")
	}
	job.Status = status
	job.FinishedAt = &finishedAt
	job.Summary = summary
	s.jobs[jobID] = job
	return nil
}

// GetJob fetches a job by ID.
func (s *Store) GetJob(_ context.Context, jobID string) (catalog.ScrapeJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return catalog.ScrapeJob{}, errors.New("job not found")
	}
	return job, nil
}

// ListJobs returns all job rows in creation order.
func (s *Store) ListJobs(_ context.Context) ([]catalog.ScrapeJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.ScrapeJob, 0, len(s.jobOrder))
	for _, id := range s.jobOrder {
		out = append(out, s.jobs[id])
	}
	return out, nil
}

// UpsertProducts inserts or replaces products by (supplier, sku).
func (s *Store) UpsertProducts(_ context.Context, products []catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		s.products[naturalKey(p.Supplier, p.SKU)] = p
	}
	return nil
}

// UpsertDeals inserts or replaces deals by (supplier, sku).
func (s *Store) UpsertDeals(_ context.Context, deals []catalog.Deal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range deals {
		s.deals[naturalKey(d.Supplier, d.SKU)] = d
	}
	return nil
}

// UpsertCoupons inserts or replaces coupons by (supplier, code).
func (s *Store) UpsertCoupons(_ context.Context, coupons []catalog.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range coupons {
		s.coupons[naturalKey(c.Supplier, c.Code)] = c
	}
	return nil
}

// TouchSupplier records a successful scrape time for a supplier.
func (s *Store) TouchSupplier(_ context.Context, slug string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suppliers[slug] = at
	return nil
}

// DeactivateExpiredDeals flips active deals whose expiry is in the past
// and returns how many were flipped. Deals without an advertised expiry
// are left alone.
func (s *Store) DeactivateExpiredDeals(_ context.Context, asOf time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, d := range s.deals {
		if d.Active && !d.ExpiresAt.IsZero() && d.ExpiresAt.Before(asOf) {
			d.Active = false
			s.deals[k] = d
			n++
		}
	}
	return n, nil
}

// CountProducts returns the number of stored products (test helper).
func (s *Store) CountProducts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}

// CountDeals returns the number of stored deals (test helper).
func (s *Store) CountDeals() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.deals)
}

// CountCoupons returns the number of stored coupons (test helper).
func (s *Store) CountCoupons() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.coupons)
}

// GetDeal returns a deal by natural key (test helper).
func (s *Store) GetDeal(supplier, sku string) (catalog.Deal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deals[naturalKey(supplier, sku)]
	return d, ok
}

// LastScraped returns the recorded scrape time for a supplier.
func (s *Store) LastScraped(slug string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ts, ok := s.suppliers[slug]
	return ts, ok
}
