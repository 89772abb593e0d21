package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sparkmate/dealscraper/internal/catalog"
	"github.com/sparkmate/dealscraper/internal/storage/memory"
)

type fakeOrchestrator struct {
	lastSlug string
	lastMode catalog.RunMode
	report   catalog.RunReport
}

func (f *fakeOrchestrator) Run(_ context.Context, slug string, mode catalog.RunMode) catalog.RunReport {
	f.lastSlug = slug
	f.lastMode = mode
	report := f.report
	report.Supplier = slug
	report.Mode = mode
	return report
}

type fakeBatch struct {
	calls   int
	summary catalog.BatchSummary
}

func (f *fakeBatch) Run(context.Context) catalog.BatchSummary {
	f.calls++
	return f.summary
}

func newTestServer(orch *fakeOrchestrator, batch *fakeBatch, store catalog.Store) *Server {
	if store == nil {
		store = memory.NewStore()
	}
	return NewServer(store, orch, batch, zap.NewNop())
}

func TestSubmitRunSuccess(t *testing.T) {
	t.Parallel()

	orch := &fakeOrchestrator{report: catalog.RunReport{
		JobID: "job-1", Success: true, Products: 12, Deals: 3,
	}}
	srv := newTestServer(orch, &fakeBatch{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/runs",
		strings.NewReader(`{"supplier":"screwfix","mode":"full_catalog"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "screwfix", orch.lastSlug)
	require.Equal(t, catalog.ModeFullCatalog, orch.lastMode)

	var report catalog.RunReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Equal(t, "job-1", report.JobID)
	require.Equal(t, 12, report.Products)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestSubmitRunDefaultsToFullCatalog(t *testing.T) {
	t.Parallel()

	orch := &fakeOrchestrator{report: catalog.RunReport{Success: true}}
	srv := newTestServer(orch, &fakeBatch{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/runs",
		strings.NewReader(`{"supplier":"cef"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, catalog.ModeFullCatalog, orch.lastMode)
}

func TestSubmitRunUnknownSupplierIs404(t *testing.T) {
	t.Parallel()

	orch := &fakeOrchestrator{report: catalog.RunReport{
		Success: false,
		Errors:  []string{"Unknown supplier: megawatt-mart"},
	}}
	srv := newTestServer(orch, &fakeBatch{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/runs",
		strings.NewReader(`{"supplier":"megawatt-mart"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)

	var report catalog.RunReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.False(t, report.Success)
	require.Contains(t, report.Errors[0], "Unknown supplier")
}

func TestSubmitRunFailedScrapeIs502(t *testing.T) {
	t.Parallel()

	orch := &fakeOrchestrator{report: catalog.RunReport{
		JobID:   "job-2",
		Success: false,
		Errors:  []string{"fetch https://www.cef.co.uk/offers: connection refused"},
	}}
	srv := newTestServer(orch, &fakeBatch{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/runs",
		strings.NewReader(`{"supplier":"cef","mode":"deals_only"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSubmitRunValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"missing supplier", `{"mode":"full_catalog"}`},
		{"bad mode", `{"supplier":"cef","mode":"everything"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := newTestServer(&fakeOrchestrator{}, &fakeBatch{}, nil)
			req := httptest.NewRequest(http.MethodPost, "/v1/runs", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)
			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSubmitBatch(t *testing.T) {
	t.Parallel()

	batch := &fakeBatch{summary: catalog.BatchSummary{
		Reports: []catalog.RunReport{
			{Supplier: "screwfix", Success: true},
			{Supplier: "cef", Success: false},
		},
		DealsDeactivated: 4,
	}}
	srv := newTestServer(&fakeOrchestrator{}, batch, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/batch", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, batch.calls)

	var summary catalog.BatchSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.Len(t, summary.Reports, 2)
	require.EqualValues(t, 4, summary.DealsDeactivated)
}

func TestGetJob(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	job := catalog.ScrapeJob{
		ID:        "job-9",
		Supplier:  "yesss",
		Mode:      catalog.ModeDealsOnly,
		Status:    catalog.JobStatusRunning,
		StartedAt: time.Unix(1700000000, 0).UTC(),
	}
	require.NoError(t, store.CreateJob(context.Background(), job))

	srv := newTestServer(&fakeOrchestrator{}, &fakeBatch{}, store)

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/job-9", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Job catalog.ScrapeJob `json:"job"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "yesss", body.Job.Supplier)
	require.Equal(t, catalog.JobStatusRunning, body.Job.Status)
}

func TestGetJobNotFound(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeOrchestrator{}, &fakeBatch{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/nope", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeOrchestrator{}, &fakeBatch{}, nil)

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
}
