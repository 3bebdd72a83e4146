package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func categoryPage(anchors, distinct int) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < anchors; i++ {
		fmt.Fprintf(&b, `<div class="s-result-item"><a href="/Item-%d/dp/B0%08d/ref=sr_1_%d">item</a></div>`, i, i%distinct, i)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func productResponder(fetched *[]string) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		*fetched = append(*fetched, req.URL.Path)
		id := strings.TrimPrefix(req.URL.Path, "/dp/")
		return htmlResponder(200, fmt.Sprintf(`<html><body><span id="productTitle">Listing Item %s</span></body></html>`, id))(req)
	}
}

func TestWalk_TruncatesBeforeFetching(t *testing.T) {
	deps, transport := newTestDeps("creator-20")
	transport.RegisterResponder("GET", "https://www.amazon.com/gp/bestsellers/electronics", htmlResponder(200, categoryPage(25, 12)))

	var fetched []string
	transport.RegisterResponder("GET", `=~^https://www\.amazon\.com/dp/`, productResponder(&fetched))

	w := NewCategoryWalker(NewAmazon(deps).Assembler, deps)
	result, err := w.Walk(context.Background(), "https://www.amazon.com/gp/bestsellers/electronics", 5)
	require.NoError(t, err)

	assert.Equal(t, 12, result.Found)
	assert.Equal(t, []string{
		"/dp/B000000000", "/dp/B000000001", "/dp/B000000002", "/dp/B000000003", "/dp/B000000004",
	}, fetched)
	require.Len(t, result.Products, 5)
	assert.Empty(t, result.Failed)
	for i, p := range result.Products {
		assert.Equal(t, fmt.Sprintf("B0%08d", i), p.ID)
		assert.Equal(t, "Listing Item "+p.ID, p.Title)
		assert.False(t, p.Synthetic)
		assert.Equal(t, "https://www.amazon.com/dp/"+p.ID+"?tag=creator-20", p.AffiliateURL)
	}
	assert.Equal(t, 6, transport.GetTotalCallCount())
}

func TestWalk_SkipsFailedItems(t *testing.T) {
	deps, transport := newTestDeps("")
	transport.RegisterResponder("GET", "https://www.amazon.com/b/?node=172282", htmlResponder(200, categoryPage(3, 3)))

	var fetched []string
	transport.RegisterResponder("GET", `=~^https://www\.amazon\.com/dp/`, productResponder(&fetched))
	transport.RegisterResponder("GET", "https://www.amazon.com/dp/B000000001", htmlResponder(404, "gone"))

	w := NewCategoryWalker(NewAmazon(deps).Assembler, deps)
	result, err := w.Walk(context.Background(), "https://www.amazon.com/b/?node=172282", 10)
	require.NoError(t, err)

	require.Len(t, result.Products, 2)
	assert.Equal(t, "B000000000", result.Products[0].ID)
	assert.Equal(t, "B000000002", result.Products[1].ID)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "B000000001", result.Failed[0].ID)
	assert.Contains(t, result.Failed[0].Error, "404")
}

func TestWalk_CategoryPageErrors(t *testing.T) {
	deps, transport := newTestDeps("")
	transport.RegisterResponder("GET", "https://www.amazon.com/gp/bestsellers/toys", htmlResponder(503, "busy"))

	w := NewCategoryWalker(NewAmazon(deps).Assembler, deps)
	result, err := w.Walk(context.Background(), "https://www.amazon.com/gp/bestsellers/toys", 5)
	assert.Nil(t, result)
	assert.Error(t, err)
}

func TestWalk_NoProductLinks(t *testing.T) {
	deps, transport := newTestDeps("")
	transport.RegisterResponder("GET", "https://www.amazon.com/gp/bestsellers/books", htmlResponder(200, "<html><body>empty</body></html>"))

	w := NewCategoryWalker(NewAmazon(deps).Assembler, deps)
	result, err := w.Walk(context.Background(), "https://www.amazon.com/gp/bestsellers/books", 5)
	require.NoError(t, err)
	assert.Zero(t, result.Found)
	assert.Empty(t, result.Products)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestWalk_StopsOnCancel(t *testing.T) {
	deps, transport := newTestDeps("")
	transport.RegisterResponder("GET", "https://www.amazon.com/gp/bestsellers/garden", htmlResponder(200, categoryPage(4, 4)))

	ctx, cancel := context.WithCancel(context.Background())
	transport.RegisterResponder("GET", `=~^https://www\.amazon\.com/dp/`, func(req *http.Request) (*http.Response, error) {
		cancel()
		return htmlResponder(200, "<html><body><h1>Garden Hose</h1></body></html>")(req)
	})

	w := NewCategoryWalker(NewAmazon(deps).Assembler, deps)
	result, err := w.Walk(ctx, "https://www.amazon.com/gp/bestsellers/garden", 4)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.LessOrEqual(t, len(result.Products), 1)
	assert.Equal(t, 2, transport.GetTotalCallCount())
}
