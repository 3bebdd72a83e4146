package links

import (
	"net/url"
	"strings"
)

// StripTracking removes every tracking key of the store from the query string.
// Remaining parameters keep their original order and encoding; the fragment is
// dropped. No network access happens here.
func StripTracking(r Rules, raw string) string {
	u, err := url.Parse(Normalize(raw))
	if err != nil {
		return raw
	}
	u.RawQuery = filterQuery(u.RawQuery, r.TrackingKeys)
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// BuildAffiliateURL writes the operator's tag (and the store's companion
// parameters) into the query, overwriting existing values so the result never
// carries a key twice. An empty tag returns the URL unchanged.
func BuildAffiliateURL(r Rules, raw, tag string) string {
	if tag == "" || r.TagKey == "" {
		return raw
	}
	u, err := url.Parse(Normalize(raw))
	if err != nil {
		return raw
	}

	params := append([]Param{}, r.TagExtras...)
	params = append(params, Param{Key: r.TagKey, Value: tag})

	keys := make([]string, 0, len(params))
	for _, p := range params {
		keys = append(keys, p.Key)
	}

	query := filterQuery(u.RawQuery, keys)
	var b strings.Builder
	b.WriteString(query)
	for _, p := range params {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	u.RawQuery = b.String()
	return u.String()
}

func filterQuery(rawQuery string, drop []string) string {
	if rawQuery == "" {
		return ""
	}
	kept := make([]string, 0)
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" || containsKey(drop, queryKey(part)) {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, "&")
}
