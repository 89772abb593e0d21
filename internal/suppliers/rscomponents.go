package suppliers

import (
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/sparkmate/dealscraper/internal/catalog"
)

const (
	SlugRSComponents    = "rs-components"
	rsComponentsBaseURL = "https://uk.rs-online.com"
)

// RS stock numbers are formatted "123-4567" on listing pages. They are
// kept verbatim; downstream joins use them as the supplier SKU.
func rsComponentsProfile() siteProfile {
	return siteProfile{
		slug:    SlugRSComponents,
		baseURL: rsComponentsBaseURL,

		productsURL: rsComponentsBaseURL + "/web/c/cables-wires/",
		dealsURL:    rsComponentsBaseURL + "/web/generalDisplay.html?id=offers",

		productSelector: "div[data-testid=product-tile]",
		dealSelector:    "div[data-testid=offer-tile]",
		nextSelector:    "a[data-testid=pagination-next]",
		maxPages:        25,

		parseProduct: rsComponentsProduct,
		parseDeal:    rsComponentsDeal,
	}
}

func rsComponentsProduct(now time.Time, e *colly.HTMLElement) (catalog.Product, bool) {
	sku := cleanText(e.ChildText("span[data-testid=stock-number]"))
	price, ok := parsePrice(e.ChildText("span[data-testid=price-inc-vat]"))
	if sku == "" || !ok {
		return catalog.Product{}, false
	}
	return catalog.Product{
		Supplier:  SlugRSComponents,
		SKU:       sku,
		Name:      cleanText(e.ChildText("a[data-testid=product-description]")),
		Price:     price,
		Currency:  "GBP",
		URL:       e.Request.AbsoluteURL(e.ChildAttr("a[data-testid=product-description]", "href")),
		ImageURL:  e.ChildAttr("img", "src"),
		InStock:   e.ChildText("span[data-testid=stock-status]") != "Discontinued",
		ScrapedAt: now,
	}, true
}

func rsComponentsDeal(now time.Time, e *colly.HTMLElement) (catalog.Deal, bool) {
	sku := cleanText(e.ChildText("span[data-testid=stock-number]"))
	price, ok := parsePrice(e.ChildText("span[data-testid=offer-price]"))
	if sku == "" || !ok {
		return catalog.Deal{}, false
	}
	return catalog.Deal{
		Supplier:  SlugRSComponents,
		SKU:       sku,
		Title:     cleanText(e.ChildText("a[data-testid=product-description]")),
		Price:     price,
		WasPrice:  parseOptionalPrice(e.ChildText("span[data-testid=list-price]")),
		URL:       e.Request.AbsoluteURL(e.ChildAttr("a[data-testid=product-description]", "href")),
		ExpiresAt: parseDealDate(e.ChildText("span[data-testid=offer-ends]")),
		Active:    true,
		ScrapedAt: now,
	}, true
}
