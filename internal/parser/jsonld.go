package parser

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxJSONDepth = 5

var jsonPriceKeys = []string{"price", "currentPrice", "productPrice", "salePrice", "amount"}

// StructuredData decodes every JSON-LD block of doc into a flat node list.
// Top level arrays and @graph members are expanded; malformed blocks are skipped.
func StructuredData(doc *goquery.Document) []map[string]any {
	var nodes []map[string]any
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var data any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &data); err != nil {
			return
		}
		nodes = appendNodes(nodes, data)
	})
	return nodes
}

func appendNodes(nodes []map[string]any, data any) []map[string]any {
	switch v := data.(type) {
	case []any:
		for _, item := range v {
			nodes = appendNodes(nodes, item)
		}
	case map[string]any:
		nodes = append(nodes, v)
		if graph, ok := v["@graph"]; ok {
			nodes = appendNodes(nodes, graph)
		}
	}
	return nodes
}

// productFirst orders nodes so schema.org Product entries come before the rest.
func productFirst(nodes []map[string]any) []map[string]any {
	ordered := make([]map[string]any, 0, len(nodes))
	var rest []map[string]any
	for _, n := range nodes {
		if hasType(n, "Product") {
			ordered = append(ordered, n)
		} else {
			rest = append(rest, n)
		}
	}
	return append(ordered, rest...)
}

func hasType(node map[string]any, want string) bool {
	switch t := node["@type"].(type) {
	case string:
		return strings.EqualFold(t, want)
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.EqualFold(s, want) {
				return true
			}
		}
	}
	return false
}

func stringField(node map[string]any, key string) string {
	s, _ := node[key].(string)
	return strings.TrimSpace(s)
}

// numberField reads a JSON number or numeric string.
func numberField(node map[string]any, key string) (float64, bool) {
	switch v := node[key].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), ",", ""), 64)
		return f, err == nil
	}
	return 0, false
}

// offerPrice reads price (or lowPrice for aggregate offers) and its currency.
func offerPrice(offer map[string]any) (float64, string, bool) {
	for _, key := range []string{"price", "lowPrice"} {
		if amount, ok := numberField(offer, key); ok && amount > 0 {
			return amount, stringField(offer, "priceCurrency"), true
		}
	}
	return 0, "", false
}

// structuredPrice looks through offers, offer lists and aggregate offers.
func structuredPrice(nodes []map[string]any) (float64, string, bool) {
	for _, node := range productFirst(nodes) {
		if hasType(node, "Offer") || hasType(node, "AggregateOffer") {
			if amount, code, ok := offerPrice(node); ok {
				return amount, code, true
			}
		}
		for _, key := range []string{"offers", "aggregateOffer"} {
			switch offers := node[key].(type) {
			case map[string]any:
				if amount, code, ok := offerPrice(offers); ok {
					return amount, code, true
				}
			case []any:
				for _, item := range offers {
					if offer, ok := item.(map[string]any); ok {
						if amount, code, ok := offerPrice(offer); ok {
							return amount, code, true
						}
					}
				}
			}
		}
	}
	return 0, "", false
}

// FindJSONPrice searches embedded application/json scripts for the first
// positive value under a known price key, at most five levels deep.
func FindJSONPrice(doc *goquery.Document) (float64, bool) {
	var (
		amount float64
		found  bool
	)
	doc.Find(`script[type="application/json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &data); err != nil {
			return true
		}
		amount, found = findPrice(data, 0)
		return !found
	})
	return amount, found
}

func findPrice(data any, depth int) (float64, bool) {
	if depth > maxJSONDepth {
		return 0, false
	}
	switch v := data.(type) {
	case map[string]any:
		for _, key := range jsonPriceKeys {
			if amount, ok := numberField(v, key); ok && amount > 0 {
				return amount, true
			}
		}
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if amount, ok := findPrice(v[key], depth+1); ok {
				return amount, true
			}
		}
	case []any:
		for _, child := range v {
			if amount, ok := findPrice(child, depth+1); ok {
				return amount, true
			}
		}
	}
	return 0, false
}

// jsonStrings flattens a string, a list of strings or objects carrying one
// of keys into plain strings.
func jsonStrings(v any, keys ...string) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, jsonStrings(item, keys...)...)
		}
		return out
	case map[string]any:
		for _, key := range keys {
			if s := stringField(t, key); s != "" {
				return []string{s}
			}
		}
	}
	return nil
}
