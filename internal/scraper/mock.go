package scraper

import (
	"fmt"
	"net/url"

	"github.com/maltedev/affiliate-product-fetcher/internal/links"
	"github.com/maltedev/affiliate-product-fetcher/internal/models"
)

const mockImageURL = "https://dummyimage.com/800x800/eeeeee/333333.png?text="

type mockItem struct {
	id          string
	title       string
	price       string
	original    string
	rating      float64
	reviews     int
	description string
}

// Single-product templates; %s is the identifier.
var mockProducts = map[models.Store]mockItem{
	models.StoreAmazon: {
		title: "Product %s", price: "$19.99", original: "$24.99",
		rating: 4.6, reviews: 890, description: "Recommended product with high quality",
	},
	models.StoreAliExpress: {
		title: "AliExpress Product %s", price: "₪79.00", original: "₪119.00",
		rating: 4.4, reviews: 1567, description: "Great quality at a great price",
	},
	models.StoreEbay: {
		title: "eBay Item %s", price: "₪149.00", original: "₪189.00",
		rating: 4.6, reviews: 2345, description: "High quality at a competitive price",
	},
}

var mockCatalogs = map[models.Store][]mockItem{
	models.StoreAmazon: {
		{
			id: "B0MOCK0001", title: "Advanced Electronic Product", price: "$29.99", original: "$39.99",
			rating: 4.5, reviews: 1234, description: "High quality product with excellent reviews",
		},
		{
			id: "B0MOCK0002", title: "Innovative Gadget", price: "$14.99", original: "$19.99",
			rating: 4.8, reviews: 567, description: "The perfect solution for your needs",
		},
	},
	models.StoreAliExpress: {
		{
			id: "1005000000000001", title: "Special AliExpress Product", price: "₪89.00", original: "₪129.00",
			rating: 4.3, reviews: 2345, description: "Fast shipping and excellent quality",
		},
	},
	models.StoreEbay: {
		{
			id: "100000000001", title: "Quality eBay Product", price: "₪159.00", original: "₪199.00",
			rating: 4.7, reviews: 3456, description: "Great product with fast shipping",
		},
	},
}

// MockProduct returns the deterministic synthetic record for id. It is
// flagged Synthetic and never presented as scraped data.
func MockProduct(store models.Store, id string) *models.Product {
	item := mockProducts[store]
	item.id = id
	item.title = fmt.Sprintf(item.title, id)
	return item.product(store)
}

// MockCatalog returns up to max synthetic search results.
func MockCatalog(store models.Store, max int) []*models.Product {
	items := mockCatalogs[store]
	if max > 0 && len(items) > max {
		items = items[:max]
	}
	products := make([]*models.Product, 0, len(items))
	for _, item := range items {
		products = append(products, item.product(store))
	}
	return products
}

func (m mockItem) product(store models.Store) *models.Product {
	p := models.NewProduct(store, m.id)
	p.Title = m.title
	p.Price = m.price
	p.OriginalPrice = m.original
	p.SetDiscount(models.ComputeDiscount(m.price, m.original))
	p.SetImages([]string{mockImageURL + url.QueryEscape(m.title)})
	p.Rating = m.rating
	p.ReviewsCount = m.reviews
	p.Description = m.description
	if rules, ok := links.RulesFor(store); ok {
		p.URL = rules.CanonicalURL(m.id)
		p.AffiliateURL = p.URL
	}
	p.Synthetic = true
	return p
}
