package parser

import (
	"strconv"
	"strings"
)

var ratingAttributes = []string{"title", "aria-label", "content"}

func (e *Extractor) rating(pg *page) float64 {
	for _, node := range productFirst(pg.nodes) {
		if agg, ok := node["aggregateRating"].(map[string]any); ok {
			if v, ok := numberField(agg, "ratingValue"); ok && v >= 0 && v <= 5 {
				return v
			}
		}
	}

	for _, sel := range e.profile.RatingSelectors {
		s := pg.doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		texts := []string{s.Text()}
		for _, attr := range ratingAttributes {
			if v, ok := s.Attr(attr); ok {
				texts = append(texts, v)
			}
		}
		for _, text := range texts {
			if v, ok := e.parseRating(text); ok {
				return v
			}
		}
	}
	return 0
}

// parseRating prefers an "X out of 5" phrase and falls back to the first
// decimal. Values outside [0,5] are rejected.
func (e *Extractor) parseRating(text string) (float64, bool) {
	raw := ""
	if m := e.ratingOutOf.FindStringSubmatch(text); m != nil {
		raw = m[1]
	} else {
		raw = e.bareDecimal.FindString(text)
	}
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil || v < 0 || v > 5 {
		return 0, false
	}
	return v, true
}

func (e *Extractor) reviews(pg *page) int {
	for _, node := range productFirst(pg.nodes) {
		if agg, ok := node["aggregateRating"].(map[string]any); ok {
			for _, key := range []string{"reviewCount", "ratingCount"} {
				if v, ok := numberField(agg, key); ok && v >= 0 {
					return int(v)
				}
			}
		}
	}

	for _, sel := range e.profile.ReviewSelectors {
		if n, ok := e.parseCount(valueOf(pg.doc.Find(sel).First())); ok {
			return n
		}
	}
	return 0
}

// parseCount reads a thousands separated integer such as "12,345 ratings".
func (e *Extractor) parseCount(text string) (int, bool) {
	raw := e.countPattern.FindString(text)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.NewReplacer(",", "", ".", "").Replace(raw))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
