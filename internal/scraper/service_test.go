package scraper

import (
	"context"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/maltedev/affiliate-product-fetcher/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const aliSearchPage = `<html><body>
<div class="product-card"><a href="//www.aliexpress.com/item/1005001111111111.html"><h3>USB C Cable 2m Fast Charge</h3></a><div class="price">US $3.49</div></div>
<div class="product-card"><a href="/item/1005002222222222.html"><h3>Braided Lightning Cable</h3></a><div class="price">US $2.10</div></div>
<div class="product-card"><a href="/item/1005003333333333.html"><h3>Magnetic Cable Organizer</h3></a><div class="price">US $1.25</div></div>
</body></html>`

func TestService_FetchByURL(t *testing.T) {
	deps, transport := newTestDeps("creator-20")
	transport.RegisterResponder("GET", "https://www.amazon.com/dp/B08N5WRWNW", htmlResponder(200, productPage))
	transport.RegisterResponder("GET", "https://amzn.to/search", redirectResponder("https://www.amazon.com/s?k=headphones"))
	transport.RegisterResponder("GET", `=~^https://www\.amazon\.com/s\?`, htmlResponder(200, "<html></html>"))
	svc := NewService(deps)

	p, err := svc.FetchByURL(context.Background(), "https://www.amazon.com/dp/B08N5WRWNW?tag=x-20", "")
	require.NoError(t, err)
	assert.Equal(t, "$19.99", p.Price)

	p, err = svc.FetchByURL(context.Background(), "https://amzn.to/search", "amazon")
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, ErrRejected)

	_, err = svc.FetchByURL(context.Background(), "https://www.amazon.com/dp/B08N5WRWNW", "walmart")
	assert.ErrorIs(t, err, ErrUnknownStore)

	p, err = svc.FetchByURL(context.Background(), "https://www.ebay.com/itm/123456789012", "")
	require.NoError(t, err)
	assert.Equal(t, models.StoreEbay, p.Store)
	assert.True(t, p.Synthetic)
}

func TestService_Search(t *testing.T) {
	deps, transport := newTestDeps("creator-20")
	transport.RegisterResponder("GET", `=~^https://www\.aliexpress\.com/wholesale\?SearchText=usb\+cable`, htmlResponder(200, aliSearchPage))
	transport.RegisterResponder("GET", `=~^https://www\.aliexpress\.com/wholesale\?SearchText=broken`, httpmock.ConnectionFailure)
	svc := NewService(deps)

	t.Run("amazon without credentials uses mock catalog", func(t *testing.T) {
		products, err := svc.Search(context.Background(), "headphones", "amazon", 10)
		require.NoError(t, err)
		require.Len(t, products, 2)
		for _, p := range products {
			assert.True(t, p.Synthetic)
			assert.Contains(t, p.AffiliateURL, "tag=creator-20")
			require.NotNil(t, p.DiscountPercent)
			assert.Equal(t, 25, *p.DiscountPercent)
		}
	})

	t.Run("aliexpress scrapes result cards", func(t *testing.T) {
		products, err := svc.Search(context.Background(), "usb cable", "aliexpress", 2)
		require.NoError(t, err)
		require.Len(t, products, 2)
		assert.Equal(t, "USB C Cable 2m Fast Charge", products[0].Title)
		assert.Equal(t, "$3.49", products[0].Price)
		assert.False(t, products[0].Synthetic)
		assert.Equal(t, "https://www.aliexpress.com/item/1005002222222222.html?aff_platform=portals-tool&aff_trace_key=trk", products[1].AffiliateURL)
	})

	t.Run("aliexpress network failure uses mock catalog", func(t *testing.T) {
		products, err := svc.Search(context.Background(), "broken", "aliexpress", 5)
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.True(t, products[0].Synthetic)
		assert.Equal(t, "31%", products[0].Discount)
	})

	t.Run("ebay serves mock catalog", func(t *testing.T) {
		products, err := svc.Search(context.Background(), "lamp", "ebay", 5)
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, "20%", products[0].Discount)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := svc.Search(context.Background(), "  ", "amazon", 5)
		assert.Error(t, err)

		_, err = svc.Search(context.Background(), "lamp", "etsy", 5)
		assert.ErrorIs(t, err, ErrUnknownStore)
	})
}

func TestService_FetchCategoryRoutesByHost(t *testing.T) {
	deps, transport := newTestDeps("")
	transport.RegisterResponder("GET", "https://www.aliexpress.com/category/100003109/women.html", htmlResponder(200, aliSearchPage))
	transport.RegisterResponder("GET", `=~^https://www\.aliexpress\.com/item/`, htmlResponder(200,
		`<html><head><meta property="og:title" content="AliExpress Listing Item"></head><body></body></html>`))
	svc := NewService(deps)

	result, err := svc.FetchCategory(context.Background(), "https://www.aliexpress.com/category/100003109/women.html", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Found)
	require.Len(t, result.Products, 2)
	assert.Equal(t, models.StoreAliExpress, result.Products[0].Store)
	assert.Equal(t, "1005001111111111", result.Products[0].ID)

	_, err = svc.FetchCategory(context.Background(), " ", 2)
	assert.Error(t, err)
}

func TestMockProduct_IsDeterministic(t *testing.T) {
	for _, store := range models.Stores {
		a := MockProduct(store, "123456789012")
		b := MockProduct(store, "123456789012")

		assert.True(t, a.Synthetic)
		assert.Equal(t, a.Title, b.Title)
		assert.Equal(t, a.Price, b.Price)
		assert.Equal(t, a.ImageURLs, b.ImageURLs)
		assert.Contains(t, a.Title, "123456789012")
		require.NotNil(t, a.DiscountPercent)
		assert.NotContains(t, a.ImageURL, "placeholder")
	}
	assert.Len(t, MockCatalog(models.StoreAmazon, 1), 1)
}
