package suppliers

import (
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/sparkmate/dealscraper/internal/catalog"
)

const (
	SlugToolstation    = "toolstation"
	toolstationBaseURL = "https://www.toolstation.com"
)

func toolstationProfile() siteProfile {
	return siteProfile{
		slug:    SlugToolstation,
		baseURL: toolstationBaseURL,

		productsURL: toolstationBaseURL + "/electrical/c190",
		dealsURL:    toolstationBaseURL + "/deal-of-the-day",

		productSelector: "div.product-card",
		dealSelector:    "div.deal-card",
		nextSelector:    "a.pagination__next",
		maxPages:        40,

		parseProduct: toolstationProduct,
		parseDeal:    toolstationDeal,
	}
}

func toolstationProduct(now time.Time, e *colly.HTMLElement) (catalog.Product, bool) {
	sku := cleanText(e.ChildText("span.product-card__code"))
	price, ok := parsePrice(e.ChildText("span.price__current"))
	if sku == "" || !ok {
		return catalog.Product{}, false
	}
	return catalog.Product{
		Supplier:  SlugToolstation,
		SKU:       sku,
		Name:      cleanText(e.ChildText("h3.product-card__title")),
		Price:     price,
		WasPrice:  parseOptionalPrice(e.ChildText("span.price__was")),
		Currency:  "GBP",
		URL:       e.Request.AbsoluteURL(e.ChildAttr("a.product-card__link", "href")),
		ImageURL:  e.ChildAttr("img.product-card__image", "src"),
		InStock:   e.ChildText("span.stock--none") == "",
		ScrapedAt: now,
	}, true
}

func toolstationDeal(now time.Time, e *colly.HTMLElement) (catalog.Deal, bool) {
	sku := cleanText(e.ChildText("span.deal-card__code"))
	price, ok := parsePrice(e.ChildText("span.price__current"))
	if sku == "" || !ok {
		return catalog.Deal{}, false
	}
	return catalog.Deal{
		Supplier:  SlugToolstation,
		SKU:       sku,
		Title:     cleanText(e.ChildText("h3.deal-card__title")),
		Price:     price,
		WasPrice:  parseOptionalPrice(e.ChildText("span.price__was")),
		URL:       e.Request.AbsoluteURL(e.ChildAttr("a.deal-card__link", "href")),
		ExpiresAt: parseDealDate(e.ChildText("span.deal-card__countdown")),
		Active:    true,
		ScrapedAt: now,
	}, true
}
