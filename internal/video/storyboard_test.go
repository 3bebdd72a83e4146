package video

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/maltedev/affiliate-product-fetcher/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProduct() *models.SavedProduct {
	p := models.NewProduct(models.StoreAmazon, "B08N5WRWNW")
	p.Title = "Echo Dot (5th Gen) Smart Speaker with Alexa"
	p.Price = "$39.99"
	p.OriginalPrice = "$49.99"
	p.SetDiscount(models.ComputeDiscount(p.Price, p.OriginalPrice))
	p.Rating = 4.7
	p.ReviewsCount = 12345
	p.AffiliateURL = "https://www.amazon.com/dp/B08N5WRWNW?tag=creator-20"
	return &models.SavedProduct{Product: *p}
}

func TestChooseSource(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *models.SavedProduct)
		want    SourceMode
		wantErr error
	}{
		{
			name:   "scraped video",
			mutate: func(p *models.SavedProduct) { p.VideoURL = "https://m.media-amazon.com/v.mp4" },
			want:   SourceVideo,
		},
		{
			name:   "custom video without scraped one",
			mutate: func(p *models.SavedProduct) { p.CustomVideo = "https://cdn.example.com/promo.mp4" },
			want:   SourceVideo,
		},
		{
			name:   "several images",
			mutate: func(p *models.SavedProduct) { p.SetImages([]string{"https://i/1.jpg", "https://i/2.jpg"}) },
			want:   SourceSlideshow,
		},
		{
			name:   "single image field only",
			mutate: func(p *models.SavedProduct) { p.ImageURL = "https://i/1.jpg" },
			want:   SourceSingleImage,
		},
		{
			name:    "nothing to show",
			mutate:  func(p *models.SavedProduct) {},
			wantErr: ErrNoMedia,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProduct()
			tt.mutate(p)

			src, err := chooseSource(p)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, src.Mode)
		})
	}
}

func TestChooseSource_CustomOverridesWin(t *testing.T) {
	p := testProduct()
	p.VideoURL = "https://m.media-amazon.com/v.mp4"
	p.CustomVideo = "https://cdn.example.com/promo.mp4"
	src, err := chooseSource(p)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/promo.mp4", src.VideoURL)

	p = testProduct()
	p.SetImages([]string{"https://i/1.jpg", "https://i/2.jpg", "https://i/3.jpg", "https://i/4.jpg"})
	p.CustomImages = []string{"https://cdn.example.com/hero.jpg"}
	src, err = chooseSource(p)
	require.NoError(t, err)
	assert.Equal(t, SourceSingleImage, src.Mode)
	assert.Equal(t, []string{"https://cdn.example.com/hero.jpg"}, src.Images)
}

func TestOverlays_Timeline(t *testing.T) {
	got := overlays(testProduct())

	want := map[string][2]float64{
		"hook":    {0, 2},
		"title":   {1.5, 4},
		"price":   {3.5, 7},
		"urgency": {6, 8},
		"cta":     {6.5, 8},
	}
	require.Len(t, got, len(want))
	for _, o := range got {
		span, ok := want[o.Kind]
		require.True(t, ok, o.Kind)
		assert.Equal(t, span[0], o.Start, o.Kind)
		assert.Equal(t, span[1], o.End, o.Kind)
		assert.LessOrEqual(t, o.End, Duration)
	}
}

func TestHookText(t *testing.T) {
	p := testProduct()
	assert.Equal(t, "🔥 HOT DEAL!", hookText(p))

	small := 10
	p.SetDiscount(&small)
	assert.Equal(t, "⚡ LIMITED TIME!", hookText(p))

	p.SetDiscount(nil)
	assert.Equal(t, "💥 BEST PRICE!", hookText(p))
}

func TestPriceLines(t *testing.T) {
	assert.Equal(t, []string{
		"Price: $39.99",
		"Was $49.99 (20% OFF!)",
		"⭐ 4.7 (12345 reviews)",
	}, priceLines(testProduct()))

	p := testProduct()
	p.OriginalPrice = ""
	p.SetDiscount(nil)
	p.Rating = 0
	assert.Equal(t, []string{"Price: $39.99"}, priceLines(p))
}

func TestWrap(t *testing.T) {
	assert.Equal(t, []string{"Echo Dot (5th Gen) Smart", "Speaker with Alexa"}, wrap("Echo Dot (5th Gen) Smart Speaker with Alexa", 25))
	assert.Equal(t, []string{"Supercalifragilisticexpialidocious", "toy"}, wrap("Supercalifragilisticexpialidocious toy", 10))
	assert.Nil(t, wrap("   ", 25))
}

func TestStoryboardRenderer_Render(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "videos")
	r := NewStoryboardRenderer(dir, nil)
	r.now = func() time.Time { return time.Unix(1760000000, 0).UTC() }

	p := testProduct()
	p.SetImages([]string{"https://i/1.jpg", "https://i/2.jpg"})

	path, err := r.Render(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "amazon_B08N5WRWNW_1760000000.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "?tag=creator-20")

	var board Storyboard
	require.NoError(t, json.Unmarshal(raw, &board))
	assert.Equal(t, 1080, board.Width)
	assert.Equal(t, 1920, board.Height)
	assert.Equal(t, 30, board.FPS)
	assert.Equal(t, SourceSlideshow, board.Source.Mode)
	assert.Equal(t, 4.0, board.Source.PerImage)
	assert.Len(t, board.Overlays, 5)
}

func TestStoryboardRenderer_Errors(t *testing.T) {
	r := NewStoryboardRenderer(t.TempDir(), nil)

	_, err := r.Render(context.Background(), testProduct())
	assert.ErrorIs(t, err, ErrNoMedia)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Render(ctx, testProduct())
	assert.ErrorIs(t, err, context.Canceled)
}
