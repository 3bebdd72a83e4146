package links

import (
	"net/url"
	"strings"
	"testing"

	"github.com/maltedev/affiliate-product-fetcher/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Amazon(t *testing.T) {
	r := AmazonRules()

	tests := []struct {
		name     string
		url      string
		expected models.Kind
	}{
		{name: "affiliate tag", url: "https://shop.example.com/dp/B08N5WRWNW?tag=aff-20", expected: models.KindAffiliateProduct},
		{name: "link id", url: "https://www.amazon.com/dp/B08N5WRWNW?linkId=abc", expected: models.KindAffiliateProduct},
		{name: "direct dp", url: "https://www.amazon.com/dp/B08N5WRWNW", expected: models.KindDirectProduct},
		{name: "gp product", url: "https://www.amazon.com/gp/product/b08n5wrwnw/", expected: models.KindDirectProduct},
		{name: "short link", url: "https://amzn.to/3xYzAbC", expected: models.KindShortLink},
		{name: "amzn.com dp", url: "https://amzn.com/dp/B08N5WRWNW", expected: models.KindDirectProduct},
		{name: "amzn.com bare asin", url: "https://amzn.com/B08N5WRWNW", expected: models.KindDirectProduct},
		{name: "short link path", url: "https://www.amazon.com/shorturl/abc", expected: models.KindShortLink},
		{name: "search page", url: "https://www.amazon.com/s?k=headphones", expected: models.KindCategoryPage},
		{name: "bestsellers", url: "https://www.amazon.com/gp/bestsellers/electronics", expected: models.KindCategoryPage},
		{name: "browse node", url: "https://www.amazon.com/b/?node=172282", expected: models.KindCategoryPage},
		{name: "vdp", url: "https://www.amazon.com/vdp/0a1b2c?product=B0D1G7XF9X", expected: models.KindVideoDetailPage},
		{name: "vdp with tag stays vdp", url: "https://www.amazon.com/vdp/0a1b2c?product=B0D1G7XF9X&tag=x-20", expected: models.KindVideoDetailPage},
		{name: "home page", url: "https://www.amazon.com/", expected: models.KindUnrecognized},
		{name: "empty", url: "", expected: models.KindUnrecognized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(r, tt.url))
		})
	}
}

func TestClassify_CategoryBeatsIdentifier(t *testing.T) {
	r := AmazonRules()
	raw := "https://www.amazon.com/s?k=B08N5WRWNW&tag=aff-20&asin=B08N5WRWNW"

	require.NotEmpty(t, ExtractID(r, raw))
	assert.Equal(t, models.KindCategoryPage, Classify(r, raw))
}

func TestClassify_OtherStores(t *testing.T) {
	ali := AliExpressRules()
	assert.Equal(t, models.KindAffiliateProduct, Classify(ali, "https://www.aliexpress.com/item/1005001234567890.html?aff_platform=x&aff_trace_key=y"))
	assert.Equal(t, models.KindDirectProduct, Classify(ali, "https://www.aliexpress.com/item/1005001234567890.html"))
	assert.Equal(t, models.KindCategoryPage, Classify(ali, "https://www.aliexpress.com/wholesale?SearchText=cable"))
	assert.Equal(t, models.KindShortLink, Classify(ali, "https://s.click.aliexpress.com/e/_DkXyZ"))

	eb := EbayRules()
	assert.Equal(t, models.KindDirectProduct, Classify(eb, "https://www.ebay.com/itm/123456789012"))
	assert.Equal(t, models.KindAffiliateProduct, Classify(eb, "https://www.ebay.com/itm/123456789012?campid=5338&mkcid=1"))
	assert.Equal(t, models.KindCategoryPage, Classify(eb, "https://www.ebay.com/sch/i.html?_nkw=lamp"))
}

func TestExtractID(t *testing.T) {
	tests := []struct {
		name     string
		rules    Rules
		url      string
		expected string
	}{
		{name: "dp", rules: AmazonRules(), url: "https://www.amazon.com/Some-Thing/dp/B08N5WRWNW/ref=sr_1_1", expected: "B08N5WRWNW"},
		{name: "lower case normalized", rules: AmazonRules(), url: "https://www.amazon.com/dp/b08n5wrwnw", expected: "B08N5WRWNW"},
		{name: "gp product", rules: AmazonRules(), url: "https://www.amazon.com/gp/product/B08N5WRWNW?psc=1", expected: "B08N5WRWNW"},
		{name: "asin param", rules: AmazonRules(), url: "https://www.amazon.com/review?asin=B08N5WRWNW", expected: "B08N5WRWNW"},
		{name: "vdp product param first", rules: AmazonRules(), url: "https://www.amazon.com/vdp/abc/dp/B000000001?product=B0D1G7XF9X", expected: "B0D1G7XF9X"},
		{name: "too long token rejected", rules: AmazonRules(), url: "https://www.amazon.com/dp/B08N5WRWNWXYZ", expected: ""},
		{name: "too short", rules: AmazonRules(), url: "https://www.amazon.com/dp/B08N5", expected: ""},
		{name: "aliexpress item", rules: AliExpressRules(), url: "https://www.aliexpress.com/item/1005001234567890.html?spm=a2g0o", expected: "1005001234567890"},
		{name: "ebay itm slug", rules: EbayRules(), url: "https://www.ebay.com/itm/vintage-lamp/123456789012?hash=x", expected: "123456789012"},
		{name: "amzn.com bare asin", rules: AmazonRules(), url: "https://amzn.com/B08N5WRWNW?ref=x", expected: "B08N5WRWNW"},
		{name: "ebay p", rules: EbayRules(), url: "https://www.ebay.com/p/1234567890", expected: "1234567890"},
		{name: "no match", rules: EbayRules(), url: "https://www.ebay.com/", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractID(tt.rules, tt.url))
		})
	}
}

func TestStripTracking_PreservesOrder(t *testing.T) {
	r := AmazonRules()

	got := StripTracking(r, "https://shop.example.com/dp/B08N5WRWNW?th=1&tag=aff-20&psc=1&color=red&linkId=9#reviews")
	assert.Equal(t, "https://shop.example.com/dp/B08N5WRWNW?th=1&color=red", got)

	u, err := url.Parse(StripTracking(r, "https://shop.example.com/dp/B08N5WRWNW?tag=aff-20"))
	require.NoError(t, err)
	assert.Equal(t, "/dp/B08N5WRWNW", u.Path)
	assert.Empty(t, u.RawQuery)
}

func TestBuildAffiliateURL_Idempotent(t *testing.T) {
	for _, r := range []Rules{AmazonRules(), AliExpressRules(), EbayRules()} {
		t.Run(string(r.Store), func(t *testing.T) {
			base := r.CanonicalURL(sampleID(r.Store))
			once := BuildAffiliateURL(r, base, "my-tag")
			twice := BuildAffiliateURL(r, once, "my-tag")

			assert.Equal(t, once, twice)
			assert.Equal(t, 1, strings.Count(twice, r.TagKey+"="))
		})
	}
}

func TestBuildAffiliateURL_OverwritesExistingTag(t *testing.T) {
	got := BuildAffiliateURL(AmazonRules(), "https://www.amazon.com/dp/B08N5WRWNW?tag=other-20&th=1", "mine-20")
	assert.Equal(t, "https://www.amazon.com/dp/B08N5WRWNW?th=1&tag=mine-20", got)
}

func TestBuildAffiliateURL_EmptyTag(t *testing.T) {
	raw := "https://www.amazon.com/dp/B08N5WRWNW"
	assert.Equal(t, raw, BuildAffiliateURL(AmazonRules(), raw, ""))
}

func TestAffiliateRoundTrip(t *testing.T) {
	for _, r := range []Rules{AmazonRules(), AliExpressRules(), EbayRules()} {
		t.Run(string(r.Store), func(t *testing.T) {
			id := sampleID(r.Store)
			aff := BuildAffiliateURL(r, r.CanonicalURL(id), "tracking-1")
			assert.Equal(t, id, ExtractID(r, aff))
		})
	}
}

func TestDetectStore(t *testing.T) {
	assert.Equal(t, models.StoreAliExpress, DetectStore("https://he.aliexpress.com/item/1.html"))
	assert.Equal(t, models.StoreEbay, DetectStore("https://www.ebay.co.uk/itm/1"))
	assert.Equal(t, models.StoreAmazon, DetectStore("https://amzn.to/x"))
	assert.Equal(t, models.StoreAmazon, DetectStore("https://shop.example.com/dp/B08N5WRWNW"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "https://amzn.to/abc", Normalize("  amzn.to/abc "))
	assert.Equal(t, "https://cdn.example.com/x", Normalize("//cdn.example.com/x"))
	assert.Equal(t, "http://a.b/c", Normalize("http://a.b/c"))
}

func sampleID(store models.Store) string {
	switch store {
	case models.StoreAliExpress:
		return "1005001234567890"
	case models.StoreEbay:
		return "123456789012"
	default:
		return "B08N5WRWNW"
	}
}
