package suppliers

import (
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/sparkmate/dealscraper/internal/catalog"
)

const (
	SlugYesss    = "yesss"
	yesssBaseURL = "https://www.yesss.co.uk"
)

func yesssProfile() siteProfile {
	return siteProfile{
		slug:    SlugYesss,
		baseURL: yesssBaseURL,

		productsURL: yesssBaseURL + "/shop/lighting",
		dealsURL:    yesssBaseURL + "/monthly-deals",
		couponsURL:  yesssBaseURL + "/voucher-codes",

		productSelector: "div.product",
		dealSelector:    "div.monthly-deal",
		couponSelector:  "div.voucher",
		nextSelector:    "a.page-next",
		maxPages:        25,

		parseProduct: yesssProduct,
		parseDeal:    yesssDeal,
		parseCoupon:  yesssCoupon,
	}
}

func yesssProduct(now time.Time, e *colly.HTMLElement) (catalog.Product, bool) {
	sku := cleanText(e.ChildText("span.product__ref"))
	price, ok := parsePrice(e.ChildText("span.product__price"))
	if sku == "" || !ok {
		return catalog.Product{}, false
	}
	return catalog.Product{
		Supplier:  SlugYesss,
		SKU:       sku,
		Name:      cleanText(e.ChildText("h3.product__name")),
		Price:     price,
		WasPrice:  parseOptionalPrice(e.ChildText("span.product__rrp")),
		Currency:  "GBP",
		URL:       e.Request.AbsoluteURL(e.ChildAttr("a.product__link", "href")),
		ImageURL:  e.ChildAttr("img", "src"),
		InStock:   e.ChildText("span.product__unavailable") == "",
		ScrapedAt: now,
	}, true
}

func yesssDeal(now time.Time, e *colly.HTMLElement) (catalog.Deal, bool) {
	sku := cleanText(e.ChildText("span.monthly-deal__ref"))
	price, ok := parsePrice(e.ChildText("span.monthly-deal__price"))
	if sku == "" || !ok {
		return catalog.Deal{}, false
	}
	return catalog.Deal{
		Supplier:  SlugYesss,
		SKU:       sku,
		Title:     cleanText(e.ChildText("h3.monthly-deal__name")),
		Price:     price,
		WasPrice:  parseOptionalPrice(e.ChildText("span.monthly-deal__was")),
		URL:       e.Request.AbsoluteURL(e.ChildAttr("a.monthly-deal__link", "href")),
		ExpiresAt: parseDealDate(e.ChildText("span.monthly-deal__until")),
		Active:    true,
		ScrapedAt: now,
	}, true
}

func yesssCoupon(now time.Time, e *colly.HTMLElement) (catalog.Coupon, bool) {
	code := cleanText(e.ChildText("span.voucher__code"))
	if code == "" {
		return catalog.Coupon{}, false
	}
	return catalog.Coupon{
		Supplier:    SlugYesss,
		Code:        code,
		Description: cleanText(e.ChildText("p.voucher__terms")),
		Discount:    cleanText(e.ChildText("span.voucher__saving")),
		ExpiresAt:   parseDealDate(e.ChildText("span.voucher__expires")),
		URL:         e.Request.URL.String(),
		ScrapedAt:   now,
	}, true
}
