package models

import (
	"fmt"
	"strings"
	"time"
)

type Store string

const (
	StoreAmazon     Store = "amazon"
	StoreAliExpress Store = "aliexpress"
	StoreEbay       Store = "ebay"
)

// Stores lists every supported store in factory order.
var Stores = []Store{StoreAmazon, StoreAliExpress, StoreEbay}

func ParseStore(s string) (Store, bool) {
	switch Store(strings.ToLower(strings.TrimSpace(s))) {
	case StoreAmazon:
		return StoreAmazon, true
	case StoreAliExpress:
		return StoreAliExpress, true
	case StoreEbay:
		return StoreEbay, true
	}
	return "", false
}

// Kind is the classification of a raw product link.
type Kind string

const (
	KindDirectProduct    Kind = "direct_product"
	KindAffiliateProduct Kind = "affiliate_product"
	KindShortLink        Kind = "short_link"
	KindCategoryPage     Kind = "category_page"
	KindVideoDetailPage  Kind = "video_detail_page"
	KindUnrecognized     Kind = "unrecognized"
)

// Product is one normalized product record produced by a fetch.
type Product struct {
	ID              string    `json:"id"`
	Store           Store     `json:"source_store"`
	Title           string    `json:"title"`
	Price           string    `json:"price"`
	OriginalPrice   string    `json:"original_price"`
	DiscountPercent *int      `json:"discount_percent,omitempty"`
	Discount        string    `json:"discount"`
	ImageURL        string    `json:"image_url"`
	ImageURLs       []string  `json:"image_urls"`
	VideoURL        string    `json:"video_url,omitempty"`
	Rating          float64   `json:"rating"`
	ReviewsCount    int       `json:"reviews_count"`
	Description     string    `json:"description"`
	AffiliateURL    string    `json:"affiliate_url"`
	URL             string    `json:"url,omitempty"`
	Synthetic       bool      `json:"synthetic"`
	ScrapedAt       time.Time `json:"scraped_at"`
}

func NewProduct(store Store, id string) *Product {
	return &Product{
		ID:        id,
		Store:     store,
		ImageURLs: []string{},
		ScrapedAt: time.Now(),
	}
}

// SetImages stores the gallery and keeps ImageURL pointing at its first entry.
func (p *Product) SetImages(urls []string) {
	if urls == nil {
		urls = []string{}
	}
	p.ImageURLs = urls
	p.ImageURL = ""
	if len(urls) > 0 {
		p.ImageURL = urls[0]
	}
}

// SetDiscount records a derived discount; a nil value clears it.
func (p *Product) SetDiscount(percent *int) {
	p.DiscountPercent = percent
	p.Discount = ""
	if percent != nil {
		p.Discount = fmt.Sprintf("%d%%", *percent)
	}
}

// EnsureTitle applies the "Product {id}" fallback.
func (p *Product) EnsureTitle() {
	if strings.TrimSpace(p.Title) == "" {
		p.Title = fmt.Sprintf("Product %s", p.ID)
	}
}
