package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/affiliate-product-fetcher/internal/links"
	"github.com/maltedev/affiliate-product-fetcher/internal/models"
)

var (
	cardTitleSelectors = []string{"h2", "h3", "h4", `[class*="title"]`, `[class*="name"]`}
	cardPriceSelectors = []string{".a-price .a-offscreen", ".s-item__price", `[class*="price"]`}
)

// ListingIDs returns the distinct product identifiers a listing page links
// to, in document order. Anchors come first, then identifier attributes that
// have the exact identifier shape.
func (e *Extractor) ListingIDs(doc *goquery.Document, rules links.Rules) []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if len(e.profile.ListingSelectors) > 0 {
		doc.Find(strings.Join(e.profile.ListingSelectors, ", ")).Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			if u, ok := absoluteURL(rules.Origin, href); ok {
				add(links.ExtractID(rules, u))
			}
		})
	}

	if attr := e.profile.IDAttribute; attr != "" {
		doc.Find("[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
			v, _ := s.Attr(attr)
			if id, ok := rules.ValidID(v); ok {
				add(id)
			}
		})
	}
	return ids
}

// SearchCards reads up to max product cards from a search results page. The
// cards carry only what the listing shows: title, price, one image and a link.
func (e *Extractor) SearchCards(doc *goquery.Document, rules links.Rules, max int) []*models.Product {
	var products []*models.Product
	seen := make(map[string]bool)

	for _, sel := range e.profile.CardSelectors {
		doc.Find(sel).EachWithBreak(func(_ int, card *goquery.Selection) bool {
			if p := e.card(card, rules); p != nil && !seen[p.ID] {
				seen[p.ID] = true
				products = append(products, p)
			}
			return max <= 0 || len(products) < max
		})
		if len(products) > 0 {
			break
		}
	}
	return products
}

func (e *Extractor) card(card *goquery.Selection, rules links.Rules) *models.Product {
	var id string
	anchors := card.Find("a[href]")
	if goquery.NodeName(card) == "a" {
		anchors = card.AddSelection(anchors)
	}
	anchors.EachWithBreak(func(_ int, a *goquery.Selection) bool {
		raw, _ := a.Attr("href")
		u, ok := absoluteURL(rules.Origin, raw)
		if !ok {
			return true
		}
		id = links.ExtractID(rules, u)
		return id == ""
	})
	if id == "" && e.profile.IDAttribute != "" {
		if v, ok := card.Attr(e.profile.IDAttribute); ok {
			id, _ = rules.ValidID(v)
		}
	}
	if id == "" {
		return nil
	}

	p := models.NewProduct(e.profile.Store, id)
	p.URL = rules.CanonicalURL(id)

	for _, sel := range cardTitleSelectors {
		if t := e.clean(card.Find(sel).First().Text()); len(t) >= minTitleLength {
			p.Title = t
			break
		}
	}
	if p.Title == "" {
		if alt, ok := card.Find("img[alt]").First().Attr("alt"); ok {
			p.Title = e.clean(alt)
		}
	}
	if p.Title == "" && goquery.NodeName(card) == "a" {
		p.Title = e.clean(card.Text())
	}

	for _, sel := range cardPriceSelectors {
		text := card.Find(sel).First().Text()
		m := e.pricePattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if amount, ok := models.ParseAmount(m[2]); ok && amount > 0 {
			cur := m[1]
			if cur == "" {
				cur = inferCurrency(text, e.profile.DefaultCurrency)
			}
			p.Price = models.FormatPrice(cur, amount)
			break
		}
	}

	img := card.Find("img").First()
	for _, attr := range []string{"src", "data-src"} {
		if v, ok := img.Attr(attr); ok {
			if u, ok := e.normalizeImage(v); ok {
				p.SetImages([]string{u})
				break
			}
		}
	}

	return p
}
