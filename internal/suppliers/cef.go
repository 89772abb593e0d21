package suppliers

import (
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/sparkmate/dealscraper/internal/catalog"
)

const (
	SlugCEF    = "cef"
	cefBaseURL = "https://www.cef.co.uk"
)

// CEF (City Electrical Factors) lists trade prices ex VAT. Prices are
// normalized to the inc-VAT figure the site shows alongside, so the
// aggregate compares like with like across suppliers.
func cefProfile() siteProfile {
	return siteProfile{
		slug:    SlugCEF,
		baseURL: cefBaseURL,

		productsURL: cefBaseURL + "/catalogue/categories/cable-management",
		dealsURL:    cefBaseURL + "/offers",

		productSelector: "article.product-tile",
		dealSelector:    "article.offer-tile",
		nextSelector:    "li.pager-next > a",
		maxPages:        30,

		parseProduct: cefProduct,
		parseDeal:    cefDeal,
	}
}

func cefProduct(now time.Time, e *colly.HTMLElement) (catalog.Product, bool) {
	sku := e.Attr("data-sku")
	price, ok := parsePrice(e.ChildText("span.price-inc-vat"))
	if sku == "" || !ok {
		return catalog.Product{}, false
	}
	return catalog.Product{
		Supplier:  SlugCEF,
		SKU:       sku,
		Name:      cleanText(e.ChildText("h2.product-tile__name")),
		Price:     price,
		Currency:  "GBP",
		URL:       e.Request.AbsoluteURL(e.ChildAttr("a", "href")),
		ImageURL:  e.ChildAttr("img", "data-src"),
		InStock:   e.ChildText("span.branch-stock") != "Unavailable",
		ScrapedAt: now,
	}, true
}

func cefDeal(now time.Time, e *colly.HTMLElement) (catalog.Deal, bool) {
	sku := e.Attr("data-sku")
	price, ok := parsePrice(e.ChildText("span.price-inc-vat"))
	if sku == "" || !ok {
		return catalog.Deal{}, false
	}
	return catalog.Deal{
		Supplier:  SlugCEF,
		SKU:       sku,
		Title:     cleanText(e.ChildText("h2.offer-tile__name")),
		Price:     price,
		WasPrice:  parseOptionalPrice(e.ChildText("span.price-was")),
		URL:       e.Request.AbsoluteURL(e.ChildAttr("a", "href")),
		ExpiresAt: parseDealDate(e.ChildText("span.offer-ends")),
		Active:    true,
		ScrapedAt: now,
	}, true
}
