package suppliers

import (
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/sparkmate/dealscraper/internal/catalog"
)

const (
	SlugEdmundson    = "edmundson"
	edmundsonBaseURL = "https://www.edmundson-electrical.co.uk"
)

func edmundsonProfile() siteProfile {
	return siteProfile{
		slug:    SlugEdmundson,
		baseURL: edmundsonBaseURL,

		productsURL: edmundsonBaseURL + "/products/wiring-accessories",
		dealsURL:    edmundsonBaseURL + "/promotions",

		productSelector: "div.catalogue-entry",
		dealSelector:    "div.promo-entry",
		nextSelector:    "a.next-page",
		maxPages:        20,

		parseProduct: edmundsonProduct,
		parseDeal:    edmundsonDeal,
	}
}

func edmundsonProduct(now time.Time, e *colly.HTMLElement) (catalog.Product, bool) {
	sku := e.Attr("data-part-number")
	price, ok := parsePrice(e.ChildText("span.entry-price"))
	if sku == "" || !ok {
		return catalog.Product{}, false
	}
	return catalog.Product{
		Supplier:  SlugEdmundson,
		SKU:       sku,
		Name:      cleanText(e.ChildText("h4.entry-title")),
		Price:     price,
		Currency:  "GBP",
		URL:       e.Request.AbsoluteURL(e.ChildAttr("a.entry-link", "href")),
		ImageURL:  e.ChildAttr("img.entry-image", "src"),
		InStock:   e.ChildText("span.entry-stock") != "To order",
		ScrapedAt: now,
	}, true
}

func edmundsonDeal(now time.Time, e *colly.HTMLElement) (catalog.Deal, bool) {
	sku := e.Attr("data-part-number")
	price, ok := parsePrice(e.ChildText("span.promo-price"))
	if sku == "" || !ok {
		return catalog.Deal{}, false
	}
	return catalog.Deal{
		Supplier:  SlugEdmundson,
		SKU:       sku,
		Title:     cleanText(e.ChildText("h4.promo-title")),
		Price:     price,
		WasPrice:  parseOptionalPrice(e.ChildText("span.promo-was")),
		URL:       e.Request.AbsoluteURL(e.ChildAttr("a.promo-link", "href")),
		ExpiresAt: parseDealDate(e.ChildText("span.promo-ends")),
		Active:    true,
		ScrapedAt: now,
	}, true
}
