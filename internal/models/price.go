package models

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// CurrencySymbols is the fixed set of symbols a price string may start with.
const CurrencySymbols = "₪$€£¥"

var amountPattern = regexp.MustCompile(`\d+(?:[.,]\d+)*`)

// ParseAmount reads the numeric part of a price string such as "$1,299.99" or "€12,50".
func ParseAmount(price string) (float64, bool) {
	raw := amountPattern.FindString(price)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(normalizeDecimal(raw), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// normalizeDecimal turns the thousands/decimal separator mix into a plain float literal.
// The last separator followed by exactly one or two digits is the decimal point.
func normalizeDecimal(raw string) string {
	last := strings.LastIndexAny(raw, ".,")
	if last < 0 {
		return raw
	}
	frac := raw[last+1:]
	intPart := strings.NewReplacer(".", "", ",", "").Replace(raw[:last])
	if len(frac) <= 2 {
		return intPart + "." + frac
	}
	return intPart + frac
}

// ComputeDiscount derives the discount percent. It only reports a value when both
// prices are positive and the original is strictly greater than the current price.
func ComputeDiscount(price, original string) *int {
	cur, ok := ParseAmount(price)
	if !ok || cur <= 0 {
		return nil
	}
	orig, ok := ParseAmount(original)
	if !ok || orig <= cur {
		return nil
	}
	pct := int(math.Round((orig - cur) / orig * 100))
	return &pct
}

// FormatPrice renders an amount with two decimals behind its symbol.
func FormatPrice(symbol string, amount float64) string {
	return symbol + strconv.FormatFloat(amount, 'f', 2, 64)
}
