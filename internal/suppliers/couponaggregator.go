package suppliers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sparkmate/dealscraper/internal/catalog"
)

const (
	SlugCouponAggregator = "coupon-aggregator"

	couponFeedURL = "https://api.voucherhub.co.uk/v2/feeds/electrical.json"

	couponFeedMaxBody = 8 << 20
)

// couponFeed is the aggregator's wire format.
type couponFeed struct {
	Vouchers []struct {
		Merchant    string `json:"merchant"`
		Code        string `json:"code"`
		Description string `json:"description"`
		Discount    string `json:"discount"`
		ValidFrom   string `json:"valid_from"`
		ExpiresAt   string `json:"expires_at"`
		URL         string `json:"url"`
	} `json:"vouchers"`
}

// couponAggregator pulls voucher codes from a third-party JSON feed.
// It produces coupons only; products and deals are always empty.
type couponAggregator struct {
	deps   Deps
	client *http.Client
}

// NewCouponAggregator builds the feed-backed coupon source. A nil client
// gets a default with the configured timeout.
func NewCouponAggregator(deps Deps, client *http.Client) (catalog.Scraper, error) {
	if client == nil {
		timeout := deps.Config.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &couponAggregator{deps: deps, client: client}, nil
}

func (a *couponAggregator) Initialize(ctx context.Context) error {
	return ctx.Err()
}

func (a *couponAggregator) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

func (a *couponAggregator) ScrapeAll(ctx context.Context) (catalog.FullCatalogResult, error) {
	coupons, errs, err := a.ScrapeCoupons(ctx)
	if err != nil {
		return catalog.FullCatalogResult{}, err
	}
	return catalog.FullCatalogResult{Coupons: coupons, Errors: errs}, nil
}

func (a *couponAggregator) ScrapeDeals(ctx context.Context) ([]catalog.Deal, []string, error) {
	return nil, nil, ctx.Err()
}

func (a *couponAggregator) ScrapeCoupons(ctx context.Context) ([]catalog.Coupon, []string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, couponFeedURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if ua := a.deps.Config.UserAgent; ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch coupon feed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("coupon feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, couponFeedMaxBody))
	if err != nil {
		return nil, nil, fmt.Errorf("read coupon feed: %w", err)
	}

	var feed couponFeed
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, nil, fmt.Errorf("decode coupon feed: %w", err)
	}

	now := a.now()
	var (
		coupons []catalog.Coupon
		errs    []string
	)
	for i, v := range feed.Vouchers {
		if v.Code == "" {
			errs = append(errs, fmt.Sprintf("voucher %d has no code", i))
			continue
		}
		coupons = append(coupons, catalog.Coupon{
			Supplier:    SlugCouponAggregator,
			Code:        v.Code,
			Description: cleanText(v.Merchant + ": " + v.Description),
			Discount:    v.Discount,
			ValidFrom:   parseDealDate(v.ValidFrom),
			ExpiresAt:   parseDealDate(v.ExpiresAt),
			URL:         v.URL,
			ScrapedAt:   now,
		})
	}
	return coupons, errs, nil
}

func (a *couponAggregator) now() time.Time {
	if a.deps.Clock != nil {
		return a.deps.Clock.Now()
	}
	return time.Now().UTC()
}
