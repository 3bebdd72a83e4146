package parser

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/affiliate-product-fetcher/internal/models"
)

const (
	maxImages         = 10
	maxDescription    = 300
	maxBullets        = 5
	minTitleLength    = 4
	minJSONTitle      = 6
	minDescription    = 21
	minBulletLength   = 11
	minPlausiblePrice = 0.01
	maxPlausiblePrice = 10000
)

// Fields is everything the extractors found on one product page. Missing
// values stay at their zero value.
type Fields struct {
	Title           string
	Price           string
	OriginalPrice   string
	DiscountPercent *int
	ImageURLs       []string
	VideoURL        string
	Rating          float64
	ReviewsCount    int
	Description     string
}

// Apply copies the extracted fields onto p.
func (f *Fields) Apply(p *models.Product) {
	p.Title = f.Title
	p.Price = f.Price
	p.OriginalPrice = f.OriginalPrice
	p.SetDiscount(f.DiscountPercent)
	p.SetImages(f.ImageURLs)
	p.VideoURL = f.VideoURL
	p.Rating = f.Rating
	p.ReviewsCount = f.ReviewsCount
	p.Description = f.Description
}

// Extractor runs the field cascades of one store profile. It holds no
// per-page state and is safe for concurrent use.
type Extractor struct {
	profile Profile

	pricePattern      *regexp.Regexp
	textPricePattern  []*regexp.Regexp
	ratingOutOf       *regexp.Regexp
	bareDecimal       *regexp.Regexp
	countPattern      *regexp.Regexp
	videoPatterns     []*regexp.Regexp
	bulletBoilerplate *regexp.Regexp
	titleClass        *regexp.Regexp
	whitespace        *regexp.Regexp
}

func New(profile Profile) *Extractor {
	return &Extractor{
		profile:      profile,
		pricePattern: regexp.MustCompile(`([₪$€£¥])?\s*(\d+(?:[.,]\d+)*)`),
		textPricePattern: []*regexp.Regexp{
			regexp.MustCompile(`([₪$€£¥])\s*(\d+(?:[.,]\d+)*)`),
			regexp.MustCompile(`(?i)\b(USD|EUR|GBP|ILS|JPY|CNY)\s*(\d+(?:[.,]\d+)*)`),
			regexp.MustCompile(`(?i)(\d+\.\d{2})\s*(USD|dollars?)\b`),
		},
		ratingOutOf:  regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*out\s+of\s+5`),
		bareDecimal:  regexp.MustCompile(`\d+(?:[.,]\d+)?`),
		countPattern: regexp.MustCompile(`\d{1,3}(?:[,.]\d{3})+|\d+`),
		videoPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)"(https?://[^"]*\.(?:mp4|m3u8)[^"]*)"`),
			regexp.MustCompile(`(?i)(?:videoUrl|source)["']?\s*[:=]\s*["']([^"']+\.(?:mp4|m3u8)[^"']*)`),
		},
		bulletBoilerplate: regexp.MustCompile(`(?i)^(Make sure|Visit|See|Click)`),
		titleClass:        regexp.MustCompile(`(?i)title|product`),
		whitespace:        regexp.MustCompile(`\s+`),
	}
}

func (e *Extractor) Profile() Profile {
	return e.profile
}

// Parse runs every extractor over html.
func (e *Extractor) Parse(html string) (*Fields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return e.ParseDocument(doc), nil
}

func (e *Extractor) ParseDocument(doc *goquery.Document) *Fields {
	pg := newPage(doc)

	f := &Fields{
		Title:        e.title(pg),
		ImageURLs:    e.images(pg),
		VideoURL:     e.video(pg),
		Rating:       e.rating(pg),
		ReviewsCount: e.reviews(pg),
		Description:  e.description(pg),
	}
	f.Price, f.OriginalPrice, f.DiscountPercent = e.prices(pg)
	return f
}

func (e *Extractor) Title(doc *goquery.Document) string {
	return e.title(newPage(doc))
}

// Price returns the current price, the original price and the derived discount.
func (e *Extractor) Price(doc *goquery.Document) (string, string, *int) {
	return e.prices(newPage(doc))
}

func (e *Extractor) Images(doc *goquery.Document) []string {
	return e.images(newPage(doc))
}

func (e *Extractor) Video(doc *goquery.Document) string {
	return e.video(newPage(doc))
}

func (e *Extractor) Rating(doc *goquery.Document) float64 {
	return e.rating(newPage(doc))
}

func (e *Extractor) ReviewsCount(doc *goquery.Document) int {
	return e.reviews(newPage(doc))
}

func (e *Extractor) Description(doc *goquery.Document) string {
	return e.description(newPage(doc))
}

// page pairs a document with its decoded structured data so the JSON-LD
// blocks are parsed once per Parse call.
type page struct {
	doc   *goquery.Document
	nodes []map[string]any
}

func newPage(doc *goquery.Document) *page {
	return &page{doc: doc, nodes: StructuredData(doc)}
}

func (e *Extractor) clean(s string) string {
	return strings.TrimSpace(e.whitespace.ReplaceAllString(s, " "))
}

// valueOf reads a meta tag's content or an element's text.
func valueOf(s *goquery.Selection) string {
	if goquery.NodeName(s) == "meta" {
		v, _ := s.Attr("content")
		return v
	}
	if text := strings.TrimSpace(s.Text()); text != "" {
		return text
	}
	v, _ := s.Attr("content")
	return v
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}

// absoluteURL resolves protocol- and root-relative references against origin.
func absoluteURL(origin, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return "", false
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw, true
	case strings.HasPrefix(raw, "/"):
		if origin == "" {
			return "", false
		}
		return strings.TrimRight(origin, "/") + raw, true
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return raw, true
	default:
		return "", false
	}
}
