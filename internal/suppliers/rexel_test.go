package suppliers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const rexelProductsFixture = `
<html><body>
<div class="product-listing">
	<article class="product" data-code="RX100">
		<a class="product__link" href="/uke/p/rx100">link</a>
		<h3 class="product__name">100A Consumer Unit</h3>
		<span class="price">£145.00</span>
		<span class="price--was">£180.00</span>
		<span class="availability">In stock</span>
		<img src="https://cdn.rexel.co.uk/rx100.jpg"/>
	</article>
	<article class="product" data-code="RX200">
		<h3 class="product__name">No price shown</h3>
	</article>
</div>
</body></html>`

const rexelDealsFixture = `
<html><body>
<div class="offers-grid">
	<article class="offer" data-code="RX100">
		<a class="offer__link" href="/uke/p/rx100">link</a>
		<h3 class="offer__name">100A Consumer Unit</h3>
		<span class="offer__price">£120.00</span>
		<span class="offer__was">£180.00</span>
		<span class="offer__ends">Ends 15/01/2026</span>
	</article>
</div>
</body></html>`

func newTestRexel(t *testing.T, pages map[string]string) *rexelScraper {
	t.Helper()
	scraper, err := NewRexel(testDeps(nil))
	require.NoError(t, err)
	rx := scraper.(*rexelScraper)
	rx.render = func(_ context.Context, url string) (string, error) {
		page, ok := pages[url]
		if !ok {
			return "", errors.New("unexpected url " + url)
		}
		return page, nil
	}
	return rx
}

func TestRexelScrapeAll(t *testing.T) {
	t.Parallel()

	rx := newTestRexel(t, map[string]string{
		rexelProductsURL: rexelProductsFixture,
		rexelDealsURL:    rexelDealsFixture,
	})

	result, err := rx.ScrapeAll(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Products, 1)
	p := result.Products[0]
	require.Equal(t, SlugRexel, p.Supplier)
	require.Equal(t, "RX100", p.SKU)
	require.InDelta(t, 145.0, p.Price, 0.001)
	require.InDelta(t, 180.0, p.WasPrice, 0.001)
	require.Equal(t, rexelBaseURL+"/uke/p/rx100", p.URL)
	require.True(t, p.InStock)

	require.Len(t, result.Deals, 1)
	d := result.Deals[0]
	require.InDelta(t, 120.0, d.Price, 0.001)
	require.Equal(t, 2026, d.ExpiresAt.Year())
	require.True(t, d.Active)

	// The card with no price is reported, not fatal.
	require.Len(t, result.Errors, 1)
}

func TestRexelDealsOnly(t *testing.T) {
	t.Parallel()

	rx := newTestRexel(t, map[string]string{
		rexelDealsURL: rexelDealsFixture,
	})
	require.NoError(t, rx.Initialize(context.Background()))
	t.Cleanup(func() { _ = rx.Close() })

	deals, itemErrs, err := rx.ScrapeDeals(context.Background())
	require.NoError(t, err)
	require.Len(t, deals, 1)
	require.Empty(t, itemErrs)

	coupons, couponErrs, err := rx.ScrapeCoupons(context.Background())
	require.NoError(t, err)
	require.Empty(t, coupons)
	require.Empty(t, couponErrs)
}

func TestRexelRenderFailureIsFatal(t *testing.T) {
	t.Parallel()

	rx := newTestRexel(t, map[string]string{})
	require.NoError(t, rx.Initialize(context.Background()))
	t.Cleanup(func() { _ = rx.Close() })

	_, _, err := rx.ScrapeDeals(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "rexel deals")
}
