package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestObserveRunBeforeInitDoesNotPanic(t *testing.T) {
	// Deliberately not parallel: ordering against Init matters here.
	require.NotPanics(t, func() {
		ObserveRun("screwfix", "full_catalog", "complete", time.Second)
		AddItems("screwfix", "product", 3)
		AddItemErrors("screwfix", 1)
		AddDealsDeactivated(2)
		IncBatchRuns()
	})
}

func TestInitAndRecord(t *testing.T) {
	Init()
	Init() // idempotent

	ObserveRun("toolstation", "deals_only", "failed", 2*time.Second)
	AddItems("toolstation", "deal", 5)
	AddItems("toolstation", "coupon", 0) // no-op
	AddItemErrors("toolstation", 2)
	AddDealsDeactivated(7)
	IncBatchRuns()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	require.Contains(t, body, "scraper_runs_total")
	require.Contains(t, body, "scraper_items_total")
	require.Contains(t, body, "scraper_deals_deactivated_total")
}
