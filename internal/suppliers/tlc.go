package suppliers

import (
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/sparkmate/dealscraper/internal/catalog"
)

const (
	SlugTLC    = "tlc-electrical"
	tlcBaseURL = "https://www.tlc-direct.co.uk"
)

// TLC's catalogue is old-school table markup with no pagination links;
// category pages are a single long listing.
func tlcProfile() siteProfile {
	return siteProfile{
		slug:    SlugTLC,
		baseURL: tlcBaseURL,

		productsURL: tlcBaseURL + "/Main_Index/Cable_Index/index.html",
		dealsURL:    tlcBaseURL + "/Special_Offers/index.html",

		productSelector: "tr.prodline",
		dealSelector:    "tr.offerline",

		parseProduct: tlcProduct,
		parseDeal:    tlcDeal,
	}
}

func tlcProduct(now time.Time, e *colly.HTMLElement) (catalog.Product, bool) {
	sku := cleanText(e.ChildText("td.prodcode"))
	price, ok := parsePrice(e.ChildText("td.prodprice"))
	if sku == "" || !ok {
		return catalog.Product{}, false
	}
	return catalog.Product{
		Supplier:  SlugTLC,
		SKU:       sku,
		Name:      cleanText(e.ChildText("td.proddesc")),
		Price:     price,
		Currency:  "GBP",
		URL:       e.Request.AbsoluteURL(e.ChildAttr("td.proddesc a", "href")),
		InStock:   true,
		ScrapedAt: now,
	}, true
}

func tlcDeal(now time.Time, e *colly.HTMLElement) (catalog.Deal, bool) {
	sku := cleanText(e.ChildText("td.prodcode"))
	price, ok := parsePrice(e.ChildText("td.offerprice"))
	if sku == "" || !ok {
		return catalog.Deal{}, false
	}
	return catalog.Deal{
		Supplier:  SlugTLC,
		SKU:       sku,
		Title:     cleanText(e.ChildText("td.proddesc")),
		Price:     price,
		WasPrice:  parseOptionalPrice(e.ChildText("td.prodprice")),
		URL:       e.Request.AbsoluteURL(e.ChildAttr("td.proddesc a", "href")),
		Active:    true,
		ScrapedAt: now,
	}, true
}
