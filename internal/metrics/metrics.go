// Package metrics exposes Prometheus collectors for the scraper service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scrapeRunsTotal       *prometheus.CounterVec
	scrapedItemsTotal     *prometheus.CounterVec
	scrapeErrorsTotal     *prometheus.CounterVec
	runDurationSeconds    *prometheus.HistogramVec
	dealsDeactivatedTotal prometheus.Counter
	batchRunsTotal        prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		scrapeRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_runs_total",
				Help: "Total supplier runs, labeled by supplier and final status.",
			},
			[]string{"supplier", "status"},
		)

		scrapedItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_items_total",
				Help: "Total items scraped, labeled by supplier and kind.",
			},
			[]string{"supplier", "kind"},
		)

		scrapeErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_item_errors_total",
				Help: "Total item-level scrape errors, labeled by supplier.",
			},
			[]string{"supplier"},
		)

		runDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scraper_run_duration_seconds",
				Help:    "Histogram of supplier run durations, labeled by supplier and mode.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"supplier", "mode"},
		)

		dealsDeactivatedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_deals_deactivated_total",
				Help: "Total deals marked inactive by the expiry cleanup pass.",
			},
		)

		batchRunsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_batch_runs_total",
				Help: "Total batch runs started.",
			},
		)
	})
}

// ObserveRun records one finished supplier run.
func ObserveRun(supplier, mode, status string, d time.Duration) {
	if scrapeRunsTotal == nil {
		return
	}
	scrapeRunsTotal.WithLabelValues(supplier, status).Inc()
	runDurationSeconds.WithLabelValues(supplier, mode).Observe(d.Seconds())
}

// AddItems records scraped item counts by kind (product, deal, coupon).
func AddItems(supplier, kind string, n int) {
	if scrapedItemsTotal == nil || n <= 0 {
		return
	}
	scrapedItemsTotal.WithLabelValues(supplier, kind).Add(float64(n))
}

// AddItemErrors records item-level scrape errors for a supplier.
func AddItemErrors(supplier string, n int) {
	if scrapeErrorsTotal == nil || n <= 0 {
		return
	}
	scrapeErrorsTotal.WithLabelValues(supplier).Add(float64(n))
}

// AddDealsDeactivated records the cleanup pass result.
func AddDealsDeactivated(n int64) {
	if dealsDeactivatedTotal == nil || n <= 0 {
		return
	}
	dealsDeactivatedTotal.Add(float64(n))
}

// IncBatchRuns records the start of a batch run.
func IncBatchRuns() {
	if batchRunsTotal == nil {
		return
	}
	batchRunsTotal.Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
