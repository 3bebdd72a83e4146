package parser

import (
	"regexp"

	"github.com/maltedev/affiliate-product-fetcher/internal/models"
)

// Rewrite swaps a low resolution CDN path segment for a larger variant.
type Rewrite struct {
	Pattern *regexp.Regexp
	Replace string
}

// Profile lists the selectors of one store, each in priority order.
type Profile struct {
	Store           models.Store
	Origin          string
	DefaultCurrency string

	TitleSelectors         []string
	PriceSelectors         []string
	OriginalPriceSelectors []string
	PriceScriptPatterns    []*regexp.Regexp

	ImageSelectors []string
	ImageRewrites  []Rewrite
	VideoSelectors []string

	RatingSelectors      []string
	ReviewSelectors      []string
	BulletSelectors      []string
	DescriptionSelectors []string

	ListingSelectors []string
	IDAttribute      string
	CardSelectors    []string
}

var (
	imageAttributes = []string{"src", "data-src", "data-old-src", "data-a-dynamic-image"}
	videoAttributes = []string{"src", "data-src", "data-video-url", "data-video-src", "data-video"}
	imageSentinels  = []string{"placeholder", "no-image", "transparent-pixel", "grey-pixel", "sprite"}
)

func AmazonProfile() Profile {
	return Profile{
		Store:           models.StoreAmazon,
		Origin:          "https://www.amazon.com",
		DefaultCurrency: "$",
		TitleSelectors: []string{
			"#productTitle",
			"h1#title",
			"h1.a-size-large.product-title-word-break",
			"h1 span.a-size-large",
			"h1.a-size-base-plus",
			"#title_feature_div h1",
			"#titleSection h1",
			`h1[data-automation-id="title"]`,
			".product-title-word-break",
		},
		PriceSelectors: []string{
			"#corePrice_feature_div .a-price:not(.a-text-price) .a-offscreen",
			`.a-price[data-a-color="base"] .a-offscreen`,
			".a-price:not(.a-text-price) .a-offscreen",
			"#priceblock_dealprice",
			"#priceblock_ourprice",
			"#priceblock_saleprice",
			"span.a-price-whole",
			"#price",
			`[data-a-color="price"]`,
		},
		OriginalPriceSelectors: []string{
			"span.basisPrice .a-offscreen",
			".a-price.a-text-price .a-offscreen",
			".a-text-strike",
			"#listPrice",
		},
		PriceScriptPatterns: []*regexp.Regexp{
			regexp.MustCompile(`"priceAmount"\s*:\s*"?(\d+(?:\.\d+)?)`),
			regexp.MustCompile(`"displayPrice"\s*:\s*"[^\d"]*(\d+(?:[.,]\d+)*)"`),
		},
		ImageSelectors: []string{
			"#altImages ul li img",
			"#imageBlock_feature_div img",
			".a-dynamic-image",
			"#main-image-container img",
			"#landingImage",
			"#imgBlkFront",
		},
		ImageRewrites: []Rewrite{
			{
				Pattern: regexp.MustCompile(`\._[A-Za-z0-9,_-]+_\.(jpe?g|png|gif|webp)`),
				Replace: "._AC_SL1500_.$1",
			},
		},
		VideoSelectors: []string{
			"video source[src]",
			"video[src]",
			"#dv-action-box video",
			".videoBlock video",
			"#video-player source",
			".video-player source",
			"video source[data-src]",
			"[data-video-url]",
			"[data-video-src]",
			`iframe[src*="video"]`,
		},
		RatingSelectors: []string{
			"#acrPopover",
			`[data-hook="rating-out-of-text"]`,
			"span.a-icon-alt",
			"i.a-icon-star span",
		},
		ReviewSelectors: []string{
			"#acrCustomerReviewText",
			`span[data-hook="total-review-count"]`,
			"#acrCustomerReviewLink",
			`a[data-hook="see-all-reviews-link-foot"]`,
		},
		BulletSelectors: []string{
			"#feature-bullets li span.a-list-item",
			"#feature-bullets li",
		},
		DescriptionSelectors: []string{
			"#productDescription",
			"#productDescription_feature_div",
			".product-description",
			"#aplus_feature_div",
		},
		ListingSelectors: []string{
			`a[href*="/dp/"]`,
			`a[href*="/gp/product/"]`,
			`a[href*="/product/"]`,
		},
		IDAttribute: "data-asin",
		CardSelectors: []string{
			`div[data-component-type="s-search-result"]`,
			"div.s-result-item[data-asin]",
		},
	}
}

func AliExpressProfile() Profile {
	return Profile{
		Store:           models.StoreAliExpress,
		Origin:          "https://www.aliexpress.com",
		DefaultCurrency: "$",
		TitleSelectors: []string{
			"h1.product-title-text",
			`h1[data-pl="product-title"]`,
			".product-title",
		},
		PriceSelectors: []string{
			".price-current",
			`[class*="price--current"]`,
			".product-price-current",
			".product-price-value",
			`[data-pl="product-price"]`,
			".price-current-notrans",
			".price .notranslate",
			`meta[property="product:price:amount"]`,
			`meta[property="og:price:amount"]`,
			`[data-pl*="price"]`,
		},
		OriginalPriceSelectors: []string{
			".price-original",
			".price-was",
			`[class*="price--original"]`,
			`[data-pl="product-original-price"]`,
		},
		PriceScriptPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)"currentPrice"\s*:\s*"?(\d+(?:\.\d+)?)`),
			regexp.MustCompile(`(?i)"productPrice"\s*:\s*"?(\d+(?:\.\d+)?)`),
			regexp.MustCompile(`(?i)"formatedActivityPrice"\s*:\s*"[^\d"]*(\d+(?:[.,]\d+)*)"`),
			regexp.MustCompile(`(?i)\bprice["']?\s*[:=]\s*["']?(\d+(?:\.\d+)?)`),
		},
		ImageSelectors: []string{
			".images-view img",
			".product-image img",
			`img[data-pl="product-image"]`,
			`[class*="slider--img"] img`,
			`[class*="image-view--previewBox"] img`,
		},
		ImageRewrites: []Rewrite{
			{
				Pattern: regexp.MustCompile(`_\d+x\d+(?:q\d+)?\.(jpe?g|png|webp)(?:_\.webp|\.avif)?$`),
				Replace: ".$1",
			},
		},
		VideoSelectors: []string{
			"video source[src]",
			"video[src]",
			"[data-video-url]",
			"[data-video-src]",
		},
		RatingSelectors: []string{
			".rating-value",
			".overview-rating-average",
			`[data-pl="rating"]`,
			`[class*="reviewer--rating"] strong`,
		},
		ReviewSelectors: []string{
			".reviews-count",
			".review-count",
			`[data-pl="reviews-count"]`,
			`[class*="reviewer--reviews"]`,
		},
		DescriptionSelectors: []string{
			".product-description",
			".detail-desc",
		},
		ListingSelectors: []string{
			`a[href*="/item/"]`,
		},
		CardSelectors: []string{
			`div[class*="product-card"]`,
			`div[class*="item-card"]`,
			`div[class*="list-item"]`,
			`a[href*="/item/"]`,
		},
	}
}

func EbayProfile() Profile {
	return Profile{
		Store:           models.StoreEbay,
		Origin:          "https://www.ebay.com",
		DefaultCurrency: "$",
		TitleSelectors: []string{
			"h1.x-item-title__mainTitle",
			".x-item-title__mainTitle span",
			"h1#itemTitle",
		},
		PriceSelectors: []string{
			".x-price-primary .ux-textspans",
			".x-price-primary",
			"#prcIsum",
			"#mm-saleDscPrc",
			`[itemprop="price"]`,
		},
		OriginalPriceSelectors: []string{
			".x-price-transparency .ux-textspans--STRIKETHROUGH",
			".ux-textspans--STRIKETHROUGH",
			"#orgPrc",
		},
		ImageSelectors: []string{
			".ux-image-carousel-item img",
			"#icImg",
			".ux-image-filmstrip-carousel-item img",
		},
		ImageRewrites: []Rewrite{
			{
				Pattern: regexp.MustCompile(`/s-l\d+\.(jpe?g|png|webp)`),
				Replace: "/s-l1600.$1",
			},
		},
		VideoSelectors: []string{
			"video source[src]",
			"video[src]",
			"[data-video-url]",
		},
		RatingSelectors: []string{
			".x-star-rating .clipped",
			".ux-summary__start--rating",
			`[itemprop="ratingValue"]`,
		},
		ReviewSelectors: []string{
			".ux-summary__count",
			`[itemprop="reviewCount"]`,
		},
		DescriptionSelectors: []string{
			".x-about-this-item",
			"#viTabs_0_is",
			"div.d-item-description",
		},
		ListingSelectors: []string{
			`a[href*="/itm/"]`,
		},
		CardSelectors: []string{
			"li.s-item",
			".s-card",
		},
	}
}

// ProfileFor returns the selector profile of a store.
func ProfileFor(store models.Store) (Profile, bool) {
	switch store {
	case models.StoreAmazon:
		return AmazonProfile(), true
	case models.StoreAliExpress:
		return AliExpressProfile(), true
	case models.StoreEbay:
		return EbayProfile(), true
	}
	return Profile{}, false
}
