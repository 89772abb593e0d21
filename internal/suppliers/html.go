package suppliers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/sparkmate/dealscraper/internal/catalog"
)

// siteProfile describes one retailer site: where the listings live and
// how to read an item out of its markup. The shared htmlScraper does
// everything else.
type siteProfile struct {
	slug    string
	baseURL string

	productsURL string
	dealsURL    string
	couponsURL  string

	productSelector string
	dealSelector    string
	couponSelector  string

	nextSelector string
	maxPages     int

	parseProduct func(now time.Time, e *colly.HTMLElement) (catalog.Product, bool)
	parseDeal    func(now time.Time, e *colly.HTMLElement) (catalog.Deal, bool)
	parseCoupon  func(now time.Time, e *colly.HTMLElement) (catalog.Coupon, bool)
}

// htmlScraper is the colly-backed catalog.Scraper shared by every plain
// HTML supplier. One instance serves one run.
type htmlScraper struct {
	profile siteProfile
	deps    Deps
	sess    *session
}

func newHTMLScraper(profile siteProfile, deps Deps) (*htmlScraper, error) {
	sess, err := newSession(profile.slug, profile.baseURL, deps)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", profile.slug, err)
	}
	return &htmlScraper{profile: profile, deps: deps, sess: sess}, nil
}

func (h *htmlScraper) Initialize(ctx context.Context) error {
	return h.sess.open(ctx)
}

func (h *htmlScraper) Close() error {
	return h.sess.close()
}

// ScrapeAll walks products, deals, and coupons in one pass. Item-level
// failures land in the result's Errors; the run only fails when a whole
// listing is unreachable.
func (h *htmlScraper) ScrapeAll(ctx context.Context) (catalog.FullCatalogResult, error) {
	var result catalog.FullCatalogResult

	if err := h.Initialize(ctx); err != nil {
		return result, err
	}
	defer h.sess.close() //nolint:errcheck

	products, err := h.scrapeProducts(ctx)
	if err != nil {
		return result, err
	}
	deals, err := h.scrapeDeals(ctx)
	if err != nil {
		return result, err
	}
	coupons, err := h.scrapeCoupons(ctx)
	if err != nil {
		return result, err
	}

	result.Products = products
	result.Deals = deals
	result.Coupons = coupons
	result.Errors = h.sess.errors()
	return result, nil
}

func (h *htmlScraper) ScrapeDeals(ctx context.Context) ([]catalog.Deal, []string, error) {
	before := len(h.sess.errors())
	deals, err := h.scrapeDeals(ctx)
	if err != nil {
		return nil, nil, err
	}
	return deals, h.sess.errors()[before:], nil
}

func (h *htmlScraper) ScrapeCoupons(ctx context.Context) ([]catalog.Coupon, []string, error) {
	before := len(h.sess.errors())
	coupons, err := h.scrapeCoupons(ctx)
	if err != nil {
		return nil, nil, err
	}
	return coupons, h.sess.errors()[before:], nil
}

func (h *htmlScraper) scrapeProducts(ctx context.Context) ([]catalog.Product, error) {
	if h.profile.productsURL == "" {
		return nil, nil
	}
	now := h.sess.now()
	var (
		items []catalog.Product
		guard sync.Mutex
	)
	err := h.sess.collect(ctx, h.profile.productsURL, h.profile.productSelector,
		h.profile.nextSelector, h.profile.maxPages,
		func(e *colly.HTMLElement) {
			p, ok := h.profile.parseProduct(now, e)
			if !ok {
				h.sess.collectErrorf("product card at %s missing sku or price", e.Request.URL)
				return
			}
			if h.sess.markSeen("product:" + p.SKU) {
				return
			}
			guard.Lock()
			items = append(items, p)
			guard.Unlock()
		})
	if err != nil {
		return nil, fmt.Errorf("%s products: %w", h.profile.slug, err)
	}
	return items, nil
}

func (h *htmlScraper) scrapeDeals(ctx context.Context) ([]catalog.Deal, error) {
	if h.profile.dealsURL == "" {
		return nil, nil
	}
	now := h.sess.now()
	var (
		items []catalog.Deal
		guard sync.Mutex
	)
	err := h.sess.collect(ctx, h.profile.dealsURL, h.profile.dealSelector,
		h.profile.nextSelector, h.profile.maxPages,
		func(e *colly.HTMLElement) {
			d, ok := h.profile.parseDeal(now, e)
			if !ok {
				h.sess.collectErrorf("deal card at %s missing sku or price", e.Request.URL)
				return
			}
			if h.sess.markSeen("deal:" + d.SKU) {
				return
			}
			guard.Lock()
			items = append(items, d)
			guard.Unlock()
		})
	if err != nil {
		return nil, fmt.Errorf("%s deals: %w", h.profile.slug, err)
	}
	return items, nil
}

func (h *htmlScraper) scrapeCoupons(ctx context.Context) ([]catalog.Coupon, error) {
	if h.profile.couponsURL == "" || h.profile.parseCoupon == nil {
		return nil, nil
	}
	now := h.sess.now()
	var (
		items []catalog.Coupon
		guard sync.Mutex
	)
	err := h.sess.collect(ctx, h.profile.couponsURL, h.profile.couponSelector, "", 0,
		func(e *colly.HTMLElement) {
			c, ok := h.profile.parseCoupon(now, e)
			if !ok {
				h.sess.collectErrorf("coupon card at %s missing code", e.Request.URL)
				return
			}
			if h.sess.markSeen("coupon:" + c.Code) {
				return
			}
			guard.Lock()
			items = append(items, c)
			guard.Unlock()
		})
	if err != nil {
		return nil, fmt.Errorf("%s coupons: %w", h.profile.slug, err)
	}
	return items, nil
}

// factoryFor adapts a profile into a catalog.Factory.
func factoryFor(profile siteProfile, deps Deps) catalog.Factory {
	return func() (catalog.Scraper, error) {
		return newHTMLScraper(profile, deps)
	}
}
