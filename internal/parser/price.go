package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/affiliate-product-fetcher/internal/models"
)

var currencyCodes = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"ILS": "₪",
	"CNY": "¥",
}

// currencyTokens is checked in order when a price carries no symbol of its own.
var currencyTokens = []struct {
	token  string
	symbol string
}{
	{"$", "$"}, {"USD", "$"}, {"€", "€"}, {"EUR", "€"}, {"£", "£"}, {"GBP", "£"},
	{"₪", "₪"}, {"ILS", "₪"}, {"NIS", "₪"}, {"¥", "¥"}, {"JPY", "¥"}, {"CNY", "¥"},
}

// CurrencySymbol maps an ISO code to its display symbol.
func CurrencySymbol(code, fallback string) string {
	if symbol, ok := currencyCodes[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return symbol
	}
	if code != "" && strings.ContainsAny(code, models.CurrencySymbols) {
		return code
	}
	return fallback
}

func inferCurrency(text, fallback string) string {
	upper := strings.ToUpper(text)
	for _, c := range currencyTokens {
		if strings.Contains(upper, c.token) {
			return c.symbol
		}
	}
	return fallback
}

func (e *Extractor) prices(pg *page) (string, string, *int) {
	price := e.currentPrice(pg)
	if price == "" {
		return "", "", nil
	}

	symbol := string([]rune(price)[:1])
	original := e.selectorPrice(pg.doc, e.profile.OriginalPriceSelectors, symbol)
	discount := models.ComputeDiscount(price, original)
	if discount == nil {
		original = ""
	}
	return price, original, discount
}

// currentPrice runs the cascade: structured data, selectors, embedded JSON,
// script patterns, then a plain text scan.
func (e *Extractor) currentPrice(pg *page) string {
	def := e.profile.DefaultCurrency

	if amount, code, ok := structuredPrice(pg.nodes); ok {
		return models.FormatPrice(CurrencySymbol(code, def), amount)
	}

	if price := e.selectorPrice(pg.doc, e.profile.PriceSelectors, ""); price != "" {
		return price
	}

	if amount, ok := FindJSONPrice(pg.doc); ok {
		return models.FormatPrice(def, amount)
	}

	if price := e.scriptPrice(pg.doc); price != "" {
		return price
	}

	return e.textPrice(pg.doc)
}

// selectorPrice returns the first selector match holding a positive amount.
// A missing symbol is inferred from the element and its parent, then symbol,
// then the store default.
func (e *Extractor) selectorPrice(doc *goquery.Document, selectors []string, symbol string) string {
	for _, sel := range selectors {
		s := doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		text := joinPriceFraction(s, valueOf(s))
		m := e.pricePattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		amount, ok := models.ParseAmount(m[2])
		if !ok || amount <= 0 {
			continue
		}

		cur := m[1]
		if cur == "" {
			fallback := symbol
			if fallback == "" {
				fallback = e.profile.DefaultCurrency
			}
			cur = inferCurrency(text+" "+s.Parent().Text(), fallback)
		}
		return models.FormatPrice(cur, amount)
	}
	return ""
}

// joinPriceFraction completes a split "1,299." whole part with the
// a-price-fraction sibling rendered next to it.
func joinPriceFraction(s *goquery.Selection, text string) string {
	if !s.HasClass("a-price-whole") {
		return text
	}
	frac := strings.TrimSpace(s.Parent().Find(".a-price-fraction").First().Text())
	if frac == "" {
		return text
	}
	return strings.TrimRight(strings.TrimSpace(text), ".") + "." + frac
}

func (e *Extractor) scriptPrice(doc *goquery.Document) string {
	if len(e.profile.PriceScriptPatterns) == 0 {
		return ""
	}

	var price string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		body := s.Text()
		for _, p := range e.profile.PriceScriptPatterns {
			m := p.FindStringSubmatch(body)
			if m == nil {
				continue
			}
			if amount, ok := models.ParseAmount(m[1]); ok && amount > 0 {
				price = models.FormatPrice(e.profile.DefaultCurrency, amount)
				return false
			}
		}
		return true
	})
	return price
}

// textPrice scans visible text for the first plausible currency amount.
func (e *Extractor) textPrice(doc *goquery.Document) string {
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	text := body.Text()

	for i, p := range e.textPricePattern {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			symbolPart, amountPart := m[1], m[2]
			if i == len(e.textPricePattern)-1 {
				symbolPart, amountPart = m[2], m[1]
			}
			amount, ok := models.ParseAmount(amountPart)
			if !ok || amount < minPlausiblePrice || amount > maxPlausiblePrice {
				continue
			}
			return models.FormatPrice(CurrencySymbol(symbolPart, inferCurrency(symbolPart, e.profile.DefaultCurrency)), amount)
		}
	}
	return ""
}
