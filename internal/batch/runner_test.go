package batch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sparkmate/dealscraper/internal/catalog"
	"github.com/sparkmate/dealscraper/internal/storage/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fakeSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
	err    error
}

func (s *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sleeps = append(s.sleeps, d)
	return nil
}

func (s *fakeSleeper) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.sleeps))
	copy(out, s.sleeps)
	return out
}

// fakeOrch records run order and fails configured suppliers.
type fakeOrch struct {
	mu       sync.Mutex
	calls    []string
	modes    []catalog.RunMode
	failFor  map[string]bool
	deadline bool
}

func (o *fakeOrch) Run(ctx context.Context, slug string, mode catalog.RunMode) catalog.RunReport {
	o.mu.Lock()
	o.calls = append(o.calls, slug)
	o.modes = append(o.modes, mode)
	o.mu.Unlock()

	if o.deadline {
		_, o.deadline = ctx.Deadline()
	}
	if o.failFor[slug] {
		return catalog.RunReport{
			Supplier: slug,
			Mode:     mode,
			Errors:   []string{"initialize: connection refused"},
		}
	}
	return catalog.RunReport{Supplier: slug, Mode: mode, Success: true, Deals: 2}
}

func (o *fakeOrch) order() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.calls))
	copy(out, o.calls)
	return out
}

func registryOf(t *testing.T, slugs ...string) *catalog.Registry {
	t.Helper()
	regs := make([]catalog.Registration, 0, len(slugs))
	for _, s := range slugs {
		regs = append(regs, catalog.Registration{
			Slug:    s,
			Factory: func() (catalog.Scraper, error) { return nil, nil },
		})
	}
	reg, err := catalog.NewRegistry(regs)
	require.NoError(t, err)
	return reg
}

func TestRunVisitsSuppliersInRegistrationOrder(t *testing.T) {
	t.Parallel()

	orch := &fakeOrch{}
	sleeper := &fakeSleeper{}
	store := memory.NewStore()
	runner := New(
		registryOf(t, "screwfix", "toolstation", "cef"),
		orch, store,
		&fakeClock{now: time.Unix(1700000000, 0).UTC()},
		sleeper,
		Config{Mode: catalog.ModeFullCatalog, Cooldown: 5 * time.Second},
		zap.NewNop(),
	)

	summary := runner.Run(context.Background())

	require.Equal(t, []string{"screwfix", "toolstation", "cef"}, orch.order())
	require.Len(t, summary.Reports, 3)
	require.Equal(t, 3, summary.Succeeded())
	require.Positive(t, summary.Duration)
}

func TestRunCoolsDownBetweenSuppliersOnly(t *testing.T) {
	t.Parallel()

	orch := &fakeOrch{}
	sleeper := &fakeSleeper{}
	runner := New(
		registryOf(t, "a", "b", "c", "d"),
		orch, memory.NewStore(),
		&fakeClock{now: time.Unix(1700000000, 0).UTC()},
		sleeper,
		Config{Mode: catalog.ModeDealsOnly, Cooldown: 5 * time.Second},
		zap.NewNop(),
	)

	runner.Run(context.Background())

	// N suppliers, N-1 cooldowns: pacing applies between runs, not after
	// the last one.
	require.Equal(t,
		[]time.Duration{5 * time.Second, 5 * time.Second, 5 * time.Second},
		sleeper.recorded(),
	)
}

func TestRunIsolatesSupplierFailures(t *testing.T) {
	t.Parallel()

	orch := &fakeOrch{failFor: map[string]bool{"b": true}}
	runner := New(
		registryOf(t, "a", "b", "c"),
		orch, memory.NewStore(),
		&fakeClock{now: time.Unix(1700000000, 0).UTC()},
		&fakeSleeper{},
		Config{Mode: catalog.ModeFullCatalog},
		zap.NewNop(),
	)

	summary := runner.Run(context.Background())

	require.Len(t, summary.Reports, 3)
	require.True(t, summary.Reports[0].Success)
	require.False(t, summary.Reports[1].Success)
	require.True(t, summary.Reports[2].Success)
	require.Equal(t, 2, summary.Succeeded())
}

func TestRunAppliesPerSupplierTimeout(t *testing.T) {
	t.Parallel()

	orch := &fakeOrch{deadline: true}
	runner := New(
		registryOf(t, "a"),
		orch, memory.NewStore(),
		&fakeClock{now: time.Unix(1700000000, 0).UTC()},
		&fakeSleeper{},
		Config{Mode: catalog.ModeFullCatalog, RunTimeout: time.Minute},
		zap.NewNop(),
	)

	runner.Run(context.Background())
	require.True(t, orch.deadline, "run context should carry a deadline")
}

func TestRunReconcilesExpiredDeals(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	now := time.Unix(1700000000, 0).UTC()
	require.NoError(t, store.UpsertDeals(context.Background(), []catalog.Deal{
		{Supplier: "cef", SKU: "old", ExpiresAt: now.Add(-time.Hour), Active: true},
		{Supplier: "cef", SKU: "new", ExpiresAt: now.Add(240 * time.Hour), Active: true},
	}))

	runner := New(
		registryOf(t, "cef"),
		&fakeOrch{}, store,
		&fakeClock{now: now},
		&fakeSleeper{},
		Config{Mode: catalog.ModeFullCatalog},
		zap.NewNop(),
	)

	summary := runner.Run(context.Background())
	require.EqualValues(t, 1, summary.DealsDeactivated)

	expired, ok := store.GetDeal("cef", "old")
	require.True(t, ok)
	require.False(t, expired.Active)

	fresh, ok := store.GetDeal("cef", "new")
	require.True(t, ok)
	require.True(t, fresh.Active)
}

func TestRunStopsOnCanceledContextButStillCleansUp(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	now := time.Unix(1700000000, 0).UTC()
	require.NoError(t, store.UpsertDeals(context.Background(), []catalog.Deal{
		{Supplier: "cef", SKU: "old", ExpiresAt: now.Add(-time.Hour), Active: true},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch := &fakeOrch{}
	runner := New(
		registryOf(t, "a", "b"),
		orch, store,
		&fakeClock{now: now},
		&fakeSleeper{},
		Config{Mode: catalog.ModeFullCatalog, Cooldown: time.Second},
		zap.NewNop(),
	)

	summary := runner.Run(ctx)
	require.Empty(t, orch.order(), "no supplier should run under a canceled context")
	require.EqualValues(t, 1, summary.DealsDeactivated, "cleanup still runs")
}

func TestNewDefaultsInvalidMode(t *testing.T) {
	t.Parallel()

	orch := &fakeOrch{}
	runner := New(
		registryOf(t, "a"),
		orch, memory.NewStore(),
		&fakeClock{now: time.Unix(1700000000, 0).UTC()},
		&fakeSleeper{},
		Config{Mode: catalog.RunMode("bogus")},
		zap.NewNop(),
	)
	runner.Run(context.Background())

	orch.mu.Lock()
	defer orch.mu.Unlock()
	require.Equal(t, []catalog.RunMode{catalog.ModeFullCatalog}, orch.modes)
}
