package links

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/maltedev/affiliate-product-fetcher/internal/models"
)

// Param is a fixed query parameter written next to the operator's tag.
type Param struct {
	Key   string
	Value string
}

// Rules describes how one store shapes its URLs.
type Rules struct {
	Store models.Store

	// Origin is the scheme and host used for canonical product URLs and for
	// resolving root-relative links found in pages.
	Origin      string
	ProductPath string

	ShortHosts       []string
	AffiliateKeys    []string
	TrackingKeys     []string
	CategoryPatterns []*regexp.Regexp

	VDPMarker  string
	VDPPattern *regexp.Regexp

	IDPatterns  []*regexp.Regexp
	IDShape     *regexp.Regexp
	UpperCaseID bool

	TagKey    string
	TagExtras []Param
}

// WithOrigin returns a copy of r that builds URLs against origin.
func (r Rules) WithOrigin(origin string) Rules {
	if origin != "" {
		r.Origin = strings.TrimRight(origin, "/")
	}
	return r
}

// CanonicalURL is the plain product page URL for id.
func (r Rules) CanonicalURL(id string) string {
	return r.Origin + fmt.Sprintf(r.ProductPath, id)
}

// Amazon identifiers are ten upper-case alphanumerics; the trailing group keeps a
// longer token from matching on its first ten characters.
const asinTail = `(?:[/?&#]|$)`

func AmazonRules() Rules {
	return Rules{
		Store:       models.StoreAmazon,
		Origin:      "https://www.amazon.com",
		ProductPath: "/dp/%s",
		ShortHosts:  []string{"amzn.to", "a.co", "amazon.com/shorturl"},
		AffiliateKeys: []string{
			"tag", "linkId", "ref",
		},
		TrackingKeys: []string{
			"tag", "linkId", "ref", "creative", "creativeASIN", "ascsubtag", "psc", "keywords", "sr",
		},
		CategoryPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)/gp/(?:bestsellers|new-releases|movers-and-shakers|most-wished-for|most-gifted)`),
			regexp.MustCompile(`(?i)/s\?`),
			regexp.MustCompile(`(?i)/s/ref=`),
			regexp.MustCompile(`(?i)/b/`),
			regexp.MustCompile(`(?i)/b\?`),
			regexp.MustCompile(`(?i)/gp/search`),
			regexp.MustCompile(`(?i)/gp/browse`),
			regexp.MustCompile(`(?i)/s/field-keywords=`),
			regexp.MustCompile(`(?i)/stores/`),
		},
		VDPMarker:  "/vdp/",
		VDPPattern: regexp.MustCompile(`(?i)[?&]product=([A-Z0-9]{10})` + asinTail),
		IDPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)/dp/([A-Z0-9]{10})` + asinTail),
			regexp.MustCompile(`(?i)/gp/product/([A-Z0-9]{10})` + asinTail),
			regexp.MustCompile(`(?i)/gp/aw/d/([A-Z0-9]{10})` + asinTail),
			regexp.MustCompile(`(?i)/product/([A-Z0-9]{10})` + asinTail),
			regexp.MustCompile(`(?i)[?&]asin=([A-Z0-9]{10})` + asinTail),
			regexp.MustCompile(`(?i)[?&]product=([A-Z0-9]{10})` + asinTail),
			regexp.MustCompile(`(?i)/d/([A-Z0-9]{10})` + asinTail),
			regexp.MustCompile(`(?i)^https?://(?:www\.)?amzn\.com/([A-Z0-9]{10})` + asinTail),
		},
		IDShape:     regexp.MustCompile(`^[A-Z0-9]{10}$`),
		UpperCaseID: true,
		TagKey:      "tag",
	}
}

func AliExpressRules() Rules {
	return Rules{
		Store:         models.StoreAliExpress,
		Origin:        "https://www.aliexpress.com",
		ProductPath:   "/item/%s.html",
		ShortHosts:    []string{"s.click.aliexpress.com", "a.aliexpress.com"},
		AffiliateKeys: []string{"aff_platform", "aff_trace_key"},
		TrackingKeys: []string{
			"aff_platform", "aff_trace_key", "aff_fcid", "aff_fsk", "aff_request_id", "sk", "terminal_id", "afSmartRedirect",
		},
		CategoryPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)/wholesale`),
			regexp.MustCompile(`(?i)/category/`),
			regexp.MustCompile(`(?i)/w/wholesale-`),
			regexp.MustCompile(`(?i)/af/`),
		},
		IDPatterns: []*regexp.Regexp{
			regexp.MustCompile(`/item/(\d+)\.html`),
			regexp.MustCompile(`/i/(\d+)\.html`),
			regexp.MustCompile(`[?&]productId=(\d+)(?:[&#]|$)`),
		},
		IDShape: regexp.MustCompile(`^\d{6,20}$`),
		TagKey:  "aff_trace_key",
		TagExtras: []Param{
			{Key: "aff_platform", Value: "portals-tool"},
		},
	}
}

func EbayRules() Rules {
	return Rules{
		Store:         models.StoreEbay,
		Origin:        "https://www.ebay.com",
		ProductPath:   "/itm/%s",
		ShortHosts:    []string{"ebay.us", "rover.ebay.com"},
		AffiliateKeys: []string{"campid", "mkcid"},
		TrackingKeys:  []string{"mkcid", "mkrid", "campid", "toolid", "customid", "mkevt", "siteid", "_trkparms", "_trksid"},
		CategoryPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)/sch/`),
			regexp.MustCompile(`(?i)/b/`),
			regexp.MustCompile(`(?i)/e/`),
			regexp.MustCompile(`(?i)/str/`),
		},
		IDPatterns: []*regexp.Regexp{
			regexp.MustCompile(`/itm/(?:[^/?#]+/)?(\d+)(?:[/?&#]|$)`),
			regexp.MustCompile(`/p/(\d+)(?:[/?&#]|$)`),
			regexp.MustCompile(`[?&]item=(\d+)(?:[&#]|$)`),
		},
		IDShape: regexp.MustCompile(`^\d{9,15}$`),
		TagKey:  "campid",
		TagExtras: []Param{
			{Key: "mkevt", Value: "1"},
			{Key: "mkcid", Value: "1"},
		},
	}
}

// RulesFor returns the URL rules for a store.
func RulesFor(store models.Store) (Rules, bool) {
	switch store {
	case models.StoreAmazon:
		return AmazonRules(), true
	case models.StoreAliExpress:
		return AliExpressRules(), true
	case models.StoreEbay:
		return EbayRules(), true
	}
	return Rules{}, false
}

// DetectStore infers the store from host substrings, defaulting to amazon.
func DetectStore(raw string) models.Store {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "aliexpress"):
		return models.StoreAliExpress
	case strings.Contains(lower, "ebay"):
		return models.StoreEbay
	default:
		return models.StoreAmazon
	}
}
