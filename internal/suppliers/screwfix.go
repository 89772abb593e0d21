package suppliers

import (
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/sparkmate/dealscraper/internal/catalog"
)

const (
	SlugScrewfix    = "screwfix"
	screwfixBaseURL = "https://www.screwfix.com"
)

// Screwfix uses data-* attributes on its product grid, which makes it
// the most stable of the selector sets.
func screwfixProfile() siteProfile {
	return siteProfile{
		slug:    SlugScrewfix,
		baseURL: screwfixBaseURL,

		productsURL: screwfixBaseURL + "/c/electrical-lighting/cat830666",
		dealsURL:    screwfixBaseURL + "/deals/electrical",
		couponsURL:  screwfixBaseURL + "/offers/codes",

		productSelector: "li[data-qaid=product-card]",
		dealSelector:    "li[data-qaid=deal-card]",
		couponSelector:  "div[data-qaid=voucher]",
		nextSelector:    "a[data-qaid=pagination-next]",
		maxPages:        40,

		parseProduct: screwfixProduct,
		parseDeal:    screwfixDeal,
		parseCoupon:  screwfixCoupon,
	}
}

func screwfixProduct(now time.Time, e *colly.HTMLElement) (catalog.Product, bool) {
	sku := e.Attr("data-product-code")
	price, ok := parsePrice(e.ChildText("span[data-qaid=price]"))
	if sku == "" || !ok {
		return catalog.Product{}, false
	}
	return catalog.Product{
		Supplier:  SlugScrewfix,
		SKU:       sku,
		Name:      cleanText(e.ChildText("span[data-qaid=product-name]")),
		Price:     price,
		WasPrice:  parseOptionalPrice(e.ChildText("span[data-qaid=was-price]")),
		Currency:  "GBP",
		URL:       e.Request.AbsoluteURL(e.ChildAttr("a[data-qaid=product-link]", "href")),
		ImageURL:  e.ChildAttr("img", "src"),
		InStock:   e.ChildText("span[data-qaid=availability]") != "Out of stock",
		ScrapedAt: now,
	}, true
}

func screwfixDeal(now time.Time, e *colly.HTMLElement) (catalog.Deal, bool) {
	sku := e.Attr("data-product-code")
	price, ok := parsePrice(e.ChildText("span[data-qaid=price]"))
	if sku == "" || !ok {
		return catalog.Deal{}, false
	}
	return catalog.Deal{
		Supplier:  SlugScrewfix,
		SKU:       sku,
		Title:     cleanText(e.ChildText("span[data-qaid=product-name]")),
		Price:     price,
		WasPrice:  parseOptionalPrice(e.ChildText("span[data-qaid=was-price]")),
		URL:       e.Request.AbsoluteURL(e.ChildAttr("a[data-qaid=product-link]", "href")),
		ExpiresAt: parseDealDate(e.ChildText("span[data-qaid=deal-ends]")),
		Active:    true,
		ScrapedAt: now,
	}, true
}

func screwfixCoupon(now time.Time, e *colly.HTMLElement) (catalog.Coupon, bool) {
	code := cleanText(e.ChildText("span[data-qaid=voucher-code]"))
	if code == "" {
		return catalog.Coupon{}, false
	}
	return catalog.Coupon{
		Supplier:    SlugScrewfix,
		Code:        code,
		Description: cleanText(e.ChildText("p[data-qaid=voucher-terms]")),
		Discount:    cleanText(e.ChildText("span[data-qaid=voucher-value]")),
		ExpiresAt:   parseDealDate(e.ChildText("span[data-qaid=voucher-expiry]")),
		URL:         e.Request.URL.String(),
		ScrapedAt:   now,
	}, true
}
