// Package suppliers contains the per-retailer scraper implementations
// and the shared collector plumbing they are built on.
package suppliers

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sparkmate/dealscraper/internal/catalog"
)

const seenCacheSize = 4096

// Config controls session behavior shared by every HTML supplier.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	Delay       time.Duration
	RandomDelay time.Duration
	Parallelism int
	DomainRPS   float64

	// Transport overrides the HTTP transport. Tests use it to serve
	// canned pages.
	Transport http.RoundTripper
}

// Deps carries everything a supplier factory needs.
type Deps struct {
	Config Config
	Clock  catalog.Clock
	Logger *zap.Logger

	// Snapshots, when set, receives the body of pages that errored so
	// selector regressions can be diagnosed after the fact.
	Snapshots      catalog.BlobStore
	SnapshotPrefix string
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// session wraps a colly collector with pacing, dedupe, and item-error
// collection. One session serves one scraper run.
type session struct {
	slug    string
	host    string
	deps    Deps
	limiter *rate.Limiter
	seen    *lru.Cache[string, struct{}]

	base *colly.Collector

	mu     sync.Mutex
	errs   []string
	opened bool
	closed bool
}

func newSession(slug, baseURL string, deps Deps) (*session, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url %q must include a host", baseURL)
	}

	seen, err := lru.New[string, struct{}](seenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("build dedupe cache: %w", err)
	}

	rps := deps.Config.DomainRPS
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}

	return &session{
		slug:    slug,
		host:    parsed.Host,
		deps:    deps,
		limiter: rate.NewLimiter(limit, 1),
		seen:    seen,
	}, nil
}

// open builds the collector. Idempotent-safe for a single run: a second
// call on the same session is rejected, matching the one-run-per-instance
// contract.
func (s *session) open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("session for %s is closed", s.slug)
	}
	if s.opened {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := s.deps.Config
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	parallelism := cfg.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}

	c := colly.NewCollector(
		colly.Async(true),
		colly.AllowedDomains(s.host, "www."+s.host),
		colly.UserAgent(cfg.UserAgent),
	)
	c.SetRequestTimeout(timeout)
	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        32,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}
	}
	c.WithTransport(transport)
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: parallelism,
		Delay:       cfg.Delay,
		RandomDelay: cfg.RandomDelay,
	}); err != nil {
		return fmt.Errorf("configure rate limits: %w", err)
	}

	s.base = c
	s.opened = true
	return nil
}

// close waits for in-flight requests and tears the session down.
func (s *session) close() error {
	s.mu.Lock()
	base := s.base
	s.closed = true
	s.base = nil
	s.mu.Unlock()

	if base != nil {
		base.Wait()
	}
	return nil
}

// collect fetches startURL and every pagination step, invoking onItem per
// matched element. Fetch failures are item errors, not run failures; the
// caller decides fatality by checking whether anything was produced.
func (s *session) collect(
	ctx context.Context,
	startURL string,
	itemSelector string,
	nextSelector string,
	maxPages int,
	onItem func(*colly.HTMLElement),
) error {
	s.mu.Lock()
	if !s.opened || s.base == nil {
		s.mu.Unlock()
		return fmt.Errorf("session for %s is not initialized", s.slug)
	}
	c := s.base.Clone()
	s.mu.Unlock()

	pages := 0
	var pagesMu sync.Mutex

	c.OnRequest(func(r *colly.Request) {
		if err := s.limiter.Wait(ctx); err != nil {
			r.Abort()
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		pageURL := ""
		if r != nil && r.Request != nil && r.Request.URL != nil {
			pageURL = r.Request.URL.String()
		}
		s.collectErrorf("fetch %s: %v", pageURL, err)
		s.snapshot(ctx, pageURL, r)
	})
	c.OnHTML(itemSelector, onItem)
	if nextSelector != "" {
		c.OnHTML(nextSelector, func(e *colly.HTMLElement) {
			pagesMu.Lock()
			pages++
			done := maxPages > 0 && pages >= maxPages
			pagesMu.Unlock()
			if done || ctx.Err() != nil {
				return
			}
			next := e.Request.AbsoluteURL(e.Attr("href"))
			if next == "" {
				return
			}
			if err := c.Visit(next); err != nil && err != colly.ErrAlreadyVisited {
				s.collectErrorf("visit %s: %v", next, err)
			}
		})
	}

	if err := c.Visit(startURL); err != nil {
		return fmt.Errorf("visit %s: %w", startURL, err)
	}
	c.Wait()
	return ctx.Err()
}

// markSeen reports whether key was already observed this run. Suppliers
// use it to keep pagination overlaps from double-counting items.
func (s *session) markSeen(key string) bool {
	seen, _ := s.seen.ContainsOrAdd(key, struct{}{})
	return seen
}

func (s *session) collectErrorf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, fmt.Sprintf(format, args...))
}

func (s *session) errors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.errs))
	copy(out, s.errs)
	return out
}

func (s *session) snapshot(ctx context.Context, pageURL string, r *colly.Response) {
	if s.deps.Snapshots == nil || r == nil || len(r.Body) == 0 {
		return
	}
	name := fmt.Sprintf("%s/%s/%d.html", s.deps.SnapshotPrefix, s.slug, time.Now().UnixNano())
	uri, err := s.deps.Snapshots.PutObject(ctx, name, "text/html; charset=utf-8", bytes.NewReader(r.Body))
	if err != nil {
		s.deps.logger().Warn("page snapshot failed",
			zap.String("supplier", s.slug),
			zap.String("url", pageURL),
			zap.Error(err),
		)
		return
	}
	s.deps.logger().Debug("page snapshot stored",
		zap.String("supplier", s.slug),
		zap.String("uri", uri),
	)
}

func (s *session) now() time.Time {
	if s.deps.Clock != nil {
		return s.deps.Clock.Now()
	}
	return time.Now().UTC()
}
