package suppliers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/sparkmate/dealscraper/internal/catalog"
)

const (
	SlugRexel    = "rexel"
	rexelBaseURL = "https://www.rexel.co.uk"

	rexelProductsURL = rexelBaseURL + "/uke/Cable-Management"
	rexelDealsURL    = rexelBaseURL + "/uke/special-offers"

	rexelNavTimeout = 45 * time.Second
)

// renderFunc fetches a URL through a browser and returns the rendered
// DOM. Tests swap in fixture HTML.
type renderFunc func(ctx context.Context, url string) (string, error)

// rexelScraper drives a headless browser because Rexel's listings are
// client-side rendered; plain HTTP gets an empty shell.
type rexelScraper struct {
	deps   Deps
	render renderFunc

	allocator   context.Context
	allocCancel context.CancelFunc

	errs []string
}

// NewRexel builds the headless scraper for rexel.co.uk.
func NewRexel(deps Deps) (catalog.Scraper, error) {
	return &rexelScraper{deps: deps}, nil
}

func (r *rexelScraper) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.render != nil {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	r.allocator, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	r.render = r.renderWithBrowser
	return nil
}

func (r *rexelScraper) Close() error {
	if r.allocCancel != nil {
		r.allocCancel()
		r.allocCancel = nil
	}
	return nil
}

func (r *rexelScraper) ScrapeAll(ctx context.Context) (catalog.FullCatalogResult, error) {
	var result catalog.FullCatalogResult
	if err := r.Initialize(ctx); err != nil {
		return result, err
	}
	defer r.Close() //nolint:errcheck

	products, err := r.scrapeProducts(ctx)
	if err != nil {
		return result, err
	}
	deals, err := r.scrapeDeals(ctx)
	if err != nil {
		return result, err
	}

	result.Products = products
	result.Deals = deals
	result.Errors = append([]string(nil), r.errs...)
	return result, nil
}

func (r *rexelScraper) ScrapeDeals(ctx context.Context) ([]catalog.Deal, []string, error) {
	before := len(r.errs)
	deals, err := r.scrapeDeals(ctx)
	if err != nil {
		return nil, nil, err
	}
	return deals, append([]string(nil), r.errs[before:]...), nil
}

// ScrapeCoupons is a no-op: Rexel publishes no public voucher codes.
func (r *rexelScraper) ScrapeCoupons(ctx context.Context) ([]catalog.Coupon, []string, error) {
	return nil, nil, ctx.Err()
}

func (r *rexelScraper) scrapeProducts(ctx context.Context) ([]catalog.Product, error) {
	doc, err := r.renderDoc(ctx, rexelProductsURL)
	if err != nil {
		return nil, fmt.Errorf("rexel products: %w", err)
	}
	now := r.now()

	var products []catalog.Product
	doc.Find("div.product-listing article.product").Each(func(_ int, s *goquery.Selection) {
		sku, _ := s.Attr("data-code")
		price, ok := parsePrice(s.Find("span.price").First().Text())
		if sku == "" || !ok {
			r.errs = append(r.errs, fmt.Sprintf("product card %d at %s missing code or price",
				len(products), rexelProductsURL))
			return
		}
		href, _ := s.Find("a.product__link").Attr("href")
		img, _ := s.Find("img").Attr("src")
		products = append(products, catalog.Product{
			Supplier:  SlugRexel,
			SKU:       sku,
			Name:      cleanText(s.Find("h3.product__name").Text()),
			Price:     price,
			WasPrice:  parseOptionalPrice(s.Find("span.price--was").Text()),
			Currency:  "GBP",
			URL:       absoluteRexelURL(href),
			ImageURL:  img,
			InStock:   !strings.Contains(s.Find("span.availability").Text(), "Out of stock"),
			ScrapedAt: now,
		})
	})
	return products, nil
}

func (r *rexelScraper) scrapeDeals(ctx context.Context) ([]catalog.Deal, error) {
	doc, err := r.renderDoc(ctx, rexelDealsURL)
	if err != nil {
		return nil, fmt.Errorf("rexel deals: %w", err)
	}
	now := r.now()

	var deals []catalog.Deal
	doc.Find("div.offers-grid article.offer").Each(func(_ int, s *goquery.Selection) {
		sku, _ := s.Attr("data-code")
		price, ok := parsePrice(s.Find("span.offer__price").Text())
		if sku == "" || !ok {
			r.errs = append(r.errs, fmt.Sprintf("offer card %d at %s missing code or price",
				len(deals), rexelDealsURL))
			return
		}
		href, _ := s.Find("a.offer__link").Attr("href")
		deals = append(deals, catalog.Deal{
			Supplier:  SlugRexel,
			SKU:       sku,
			Title:     cleanText(s.Find("h3.offer__name").Text()),
			Price:     price,
			WasPrice:  parseOptionalPrice(s.Find("span.offer__was").Text()),
			URL:       absoluteRexelURL(href),
			ExpiresAt: parseDealDate(s.Find("span.offer__ends").Text()),
			Active:    true,
			ScrapedAt: now,
		})
	})
	return deals, nil
}

func (r *rexelScraper) renderDoc(ctx context.Context, url string) (*goquery.Document, error) {
	if r.render == nil {
		return nil, fmt.Errorf("scraper not initialized")
	}
	html, err := r.render(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse rendered page: %w", err)
	}
	return doc, nil
}

func (r *rexelScraper) renderWithBrowser(ctx context.Context, url string) (string, error) {
	taskCtx, taskCancel := chromedp.NewContext(r.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, rexelNavTimeout)
	defer cancel()

	// chromedp contexts descend from the allocator, not the run context;
	// propagate run cancellation by hand.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	actions := []chromedp.Action{
		chromedp.ActionFunc(func(ctx context.Context) error {
			if ua := r.deps.Config.UserAgent; ua != "" {
				return emulation.SetUserAgentOverride(ua).Do(ctx)
			}
			return nil
		}),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return "", fmt.Errorf("chromedp run: %w", err)
	}
	r.deps.logger().Debug("rendered page", zap.String("url", url), zap.Int("bytes", len(html)))
	return html, nil
}

func (r *rexelScraper) now() time.Time {
	if r.deps.Clock != nil {
		return r.deps.Clock.Now()
	}
	return time.Now().UTC()
}

func absoluteRexelURL(href string) string {
	if href == "" || strings.HasPrefix(href, "http") {
		return href
	}
	return rexelBaseURL + href
}
