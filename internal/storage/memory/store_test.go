package memory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sparkmate/dealscraper/internal/catalog"
)

func TestJobLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore()

	job := catalog.ScrapeJob{
		ID:        "job-1",
		Supplier:  "screwfix",
		Mode:      catalog.ModeFullCatalog,
		Status:    catalog.JobStatusRunning,
		StartedAt: time.Unix(1000, 0).UTC(),
	}
	require.NoError(t, store.CreateJob(ctx, job))
	require.Error(t, store.CreateJob(ctx, job), "duplicate job must be rejected")

	finished := time.Unix(1060, 0).UTC()
	summary := catalog.JobSummary{Products: 3, Deals: 1, DurationMs: 60000}
	require.NoError(t, store.FinalizeJob(ctx, "job-1", catalog.JobStatusComplete, finished, summary))

	got, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, catalog.JobStatusComplete, got.Status)
	require.NotNil(t, got.FinishedAt)
	require.Equal(t, summary, got.Summary)

	require.Error(t, store.FinalizeJob(ctx, "missing", catalog.JobStatusFailed, finished, summary))
}

func TestUpsertsAreIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore()

	products := []catalog.Product{
		{Supplier: "screwfix", SKU: "12345", Name: "Twin & Earth 2.5mm 100m", Price: 89.99},
		{Supplier: "screwfix", SKU: "67890", Name: "17th Edition Consumer Unit", Price: 64.50},
	}
	require.NoError(t, store.UpsertProducts(ctx, products))
	require.NoError(t, store.UpsertProducts(ctx, products))
	require.Equal(t, 2, store.CountProducts())

	deals := []catalog.Deal{{Supplier: "screwfix", SKU: "12345", Title: "10% off cable", Active: true}}
	require.NoError(t, store.UpsertDeals(ctx, deals))
	require.NoError(t, store.UpsertDeals(ctx, deals))
	require.Equal(t, 1, store.CountDeals())

	coupons := []catalog.Coupon{{Supplier: "screwfix", Code: "SPARKS10"}}
	require.NoError(t, store.UpsertCoupons(ctx, coupons))
	require.NoError(t, store.UpsertCoupons(ctx, coupons))
	require.Equal(t, 1, store.CountCoupons())
}

func TestSameSKUAcrossSuppliersIsDistinct(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.UpsertProducts(ctx, []catalog.Product{
		{Supplier: "screwfix", SKU: "555", Name: "RCBO 32A"},
		{Supplier: "toolstation", SKU: "555", Name: "SDS Drill"},
	}))
	require.Equal(t, 2, store.CountProducts())
}

func TestDeactivateExpiredDeals(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore()
	now := time.Unix(5000, 0).UTC()

	require.NoError(t, store.UpsertDeals(ctx, []catalog.Deal{
		{Supplier: "cef", SKU: "a", ExpiresAt: now.Add(-time.Hour), Active: true},
		{Supplier: "cef", SKU: "b", ExpiresAt: now.Add(time.Hour), Active: true},
		{Supplier: "cef", SKU: "c", ExpiresAt: now.Add(-time.Minute), Active: false},
		{Supplier: "cef", SKU: "d", Active: true},
	}))

	n, err := store.DeactivateExpiredDeals(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	expired, ok := store.GetDeal("cef", "a")
	require.True(t, ok)
	require.False(t, expired.Active)

	future, ok := store.GetDeal("cef", "b")
	require.True(t, ok)
	require.True(t, future.Active)

	// No advertised expiry means the deal never expires.
	open, ok := store.GetDeal("cef", "d")
	require.True(t, ok)
	require.True(t, open.Active)

	// Second pass finds nothing left to flip.
	n, err = store.DeactivateExpiredDeals(ctx, now)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestTouchSupplier(t *testing.T) {
	t.Parallel()

	store := NewStore()
	at := time.Unix(9000, 0).UTC()
	require.NoError(t, store.TouchSupplier(context.Background(), "yesss", at))

	got, ok := store.LastScraped("yesss")
	require.True(t, ok)
	require.Equal(t, at, got)

	_, ok = store.LastScraped("rexel")
	require.False(t, ok)
}

func TestBlobStoreRoundTrip(t *testing.T) {
	t.Parallel()

	blob := NewBlobStore()
	uri, err := blob.PutObject(context.Background(), "snapshots/screwfix/job-1.html", "text/html", strings.NewReader("<html/>"))
	require.NoError(t, err)
	require.Equal(t, "memory://snapshots/screwfix/job-1.html", uri)

	data, ok := blob.Get("snapshots/screwfix/job-1.html")
	require.True(t, ok)
	require.Equal(t, "<html/>", string(data))
}
