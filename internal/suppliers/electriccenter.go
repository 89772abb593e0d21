package suppliers

import (
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/sparkmate/dealscraper/internal/catalog"
)

const (
	SlugElectricCenter    = "electric-center"
	electricCenterBaseURL = "https://www.electric-center.co.uk"
)

func electricCenterProfile() siteProfile {
	return siteProfile{
		slug:    SlugElectricCenter,
		baseURL: electricCenterBaseURL,

		productsURL: electricCenterBaseURL + "/range/distribution-boards",
		dealsURL:    electricCenterBaseURL + "/trade-offers",

		productSelector: "li.range-item",
		dealSelector:    "li.trade-offer",
		nextSelector:    "a.paging__forward",
		maxPages:        20,

		parseProduct: electricCenterProduct,
		parseDeal:    electricCenterDeal,
	}
}

func electricCenterProduct(now time.Time, e *colly.HTMLElement) (catalog.Product, bool) {
	sku := e.Attr("data-item-code")
	price, ok := parsePrice(e.ChildText("span.range-item__price"))
	if sku == "" || !ok {
		return catalog.Product{}, false
	}
	return catalog.Product{
		Supplier:  SlugElectricCenter,
		SKU:       sku,
		Name:      cleanText(e.ChildText("h3.range-item__name")),
		Price:     price,
		Currency:  "GBP",
		URL:       e.Request.AbsoluteURL(e.ChildAttr("a.range-item__link", "href")),
		ImageURL:  e.ChildAttr("img", "src"),
		InStock:   e.ChildText("span.range-item__stock") != "Out of stock",
		ScrapedAt: now,
	}, true
}

func electricCenterDeal(now time.Time, e *colly.HTMLElement) (catalog.Deal, bool) {
	sku := e.Attr("data-item-code")
	price, ok := parsePrice(e.ChildText("span.trade-offer__price"))
	if sku == "" || !ok {
		return catalog.Deal{}, false
	}
	return catalog.Deal{
		Supplier:  SlugElectricCenter,
		SKU:       sku,
		Title:     cleanText(e.ChildText("h3.trade-offer__name")),
		Price:     price,
		WasPrice:  parseOptionalPrice(e.ChildText("span.trade-offer__was")),
		URL:       e.Request.AbsoluteURL(e.ChildAttr("a.trade-offer__link", "href")),
		ExpiresAt: parseDealDate(e.ChildText("span.trade-offer__valid-to")),
		Active:    true,
		ScrapedAt: now,
	}, true
}
