package links

import (
	"net/url"
	"strings"

	"github.com/maltedev/affiliate-product-fetcher/internal/models"
)

// Normalize trims the raw input and adds an https scheme to bare host links.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	if !strings.Contains(raw, "://") {
		return "https://" + raw
	}
	return raw
}

// Classify maps a URL to exactly one Kind. Category patterns win over every
// other rule so listing pages never reach identifier extraction.
func Classify(r Rules, raw string) models.Kind {
	raw = Normalize(raw)
	switch {
	case raw == "":
		return models.KindUnrecognized
	case r.IsCategory(raw):
		return models.KindCategoryPage
	case r.IsShortLink(raw):
		return models.KindShortLink
	case r.IsVDP(raw):
		return models.KindVideoDetailPage
	case r.HasAffiliateKeys(raw):
		return models.KindAffiliateProduct
	case ExtractID(r, raw) != "":
		return models.KindDirectProduct
	default:
		return models.KindUnrecognized
	}
}

func (r Rules) IsCategory(raw string) bool {
	for _, p := range r.CategoryPatterns {
		if p.MatchString(raw) {
			return true
		}
	}
	return false
}

func (r Rules) IsShortLink(raw string) bool {
	u, err := url.Parse(Normalize(raw))
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	hostPath := host + strings.ToLower(u.EscapedPath())
	for _, short := range r.ShortHosts {
		if strings.Contains(short, "/") {
			if strings.HasPrefix(hostPath, short) {
				return true
			}
			continue
		}
		if host == short {
			return true
		}
	}
	return false
}

func (r Rules) IsVDP(raw string) bool {
	if r.VDPMarker == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.Contains(raw, r.VDPMarker)
	}
	return strings.Contains(u.Path, r.VDPMarker)
}

// HasAffiliateKeys reports whether the query carries any classification trigger key.
func (r Rules) HasAffiliateKeys(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(u.RawQuery, "&") {
		if containsKey(r.AffiliateKeys, queryKey(part)) {
			return true
		}
	}
	return false
}

func queryKey(part string) string {
	key, _, _ := strings.Cut(part, "=")
	if k, err := url.QueryUnescape(key); err == nil {
		return k
	}
	return key
}

func containsKey(keys []string, key string) bool {
	if key == "" {
		return false
	}
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
