package suppliers

import (
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/sparkmate/dealscraper/internal/catalog"
)

const (
	SlugElectricalDirect    = "electrical-direct"
	electricalDirectBaseURL = "https://www.electricaldirect.co.uk"
)

func electricalDirectProfile() siteProfile {
	return siteProfile{
		slug:    SlugElectricalDirect,
		baseURL: electricalDirectBaseURL,

		productsURL: electricalDirectBaseURL + "/electrical-supplies",
		dealsURL:    electricalDirectBaseURL + "/clearance",
		couponsURL:  electricalDirectBaseURL + "/discount-codes",

		productSelector: "div.listing-item",
		dealSelector:    "div.clearance-item",
		couponSelector:  "li.discount-code",
		nextSelector:    "a[rel=next]",
		maxPages:        30,

		parseProduct: electricalDirectProduct,
		parseDeal:    electricalDirectDeal,
		parseCoupon:  electricalDirectCoupon,
	}
}

func electricalDirectProduct(now time.Time, e *colly.HTMLElement) (catalog.Product, bool) {
	sku := cleanText(e.ChildText("span.listing-item__sku"))
	price, ok := parsePrice(e.ChildText("span.listing-item__price"))
	if sku == "" || !ok {
		return catalog.Product{}, false
	}
	return catalog.Product{
		Supplier:  SlugElectricalDirect,
		SKU:       sku,
		Name:      cleanText(e.ChildText("a.listing-item__title")),
		Price:     price,
		WasPrice:  parseOptionalPrice(e.ChildText("span.listing-item__rrp")),
		Currency:  "GBP",
		URL:       e.Request.AbsoluteURL(e.ChildAttr("a.listing-item__title", "href")),
		ImageURL:  e.ChildAttr("img", "src"),
		InStock:   e.ChildText("span.listing-item__oos") == "",
		ScrapedAt: now,
	}, true
}

func electricalDirectDeal(now time.Time, e *colly.HTMLElement) (catalog.Deal, bool) {
	sku := cleanText(e.ChildText("span.clearance-item__sku"))
	price, ok := parsePrice(e.ChildText("span.clearance-item__price"))
	if sku == "" || !ok {
		return catalog.Deal{}, false
	}
	return catalog.Deal{
		Supplier:  SlugElectricalDirect,
		SKU:       sku,
		Title:     cleanText(e.ChildText("a.clearance-item__title")),
		Price:     price,
		WasPrice:  parseOptionalPrice(e.ChildText("span.clearance-item__was")),
		URL:       e.Request.AbsoluteURL(e.ChildAttr("a.clearance-item__title", "href")),
		ExpiresAt: parseDealDate(e.ChildText("span.clearance-item__ends")),
		Active:    true,
		ScrapedAt: now,
	}, true
}

func electricalDirectCoupon(now time.Time, e *colly.HTMLElement) (catalog.Coupon, bool) {
	code := cleanText(e.ChildText("span.discount-code__code"))
	if code == "" {
		return catalog.Coupon{}, false
	}
	return catalog.Coupon{
		Supplier:    SlugElectricalDirect,
		Code:        code,
		Description: cleanText(e.ChildText("p.discount-code__desc")),
		Discount:    cleanText(e.ChildText("span.discount-code__amount")),
		ExpiresAt:   parseDealDate(e.ChildText("span.discount-code__expiry")),
		URL:         e.Request.URL.String(),
		ScrapedAt:   now,
	}, true
}
