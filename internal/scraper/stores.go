package scraper

import (
	"context"
	"net/url"
	"strings"

	"github.com/maltedev/affiliate-product-fetcher/internal/models"
)

const defaultSearchResults = 10

func searchLimit(max int) int {
	if max <= 0 {
		return defaultSearchResults
	}
	return max
}

// Amazon scrapes product pages directly. Search needs API credentials;
// without them it serves the mock catalog.
type Amazon struct {
	*Assembler
}

func NewAmazon(deps Deps) *Amazon {
	return &Amazon{Assembler: newAssembler(models.StoreAmazon, deps.withDefaults())}
}

func (f *Amazon) FetchByURL(ctx context.Context, raw string) (*models.Product, error) {
	return f.Assemble(ctx, raw)
}

func (f *Amazon) FetchByID(ctx context.Context, id string) (*models.Product, error) {
	return f.AssembleID(ctx, id)
}

func (f *Amazon) Search(ctx context.Context, keywords string, max int) ([]*models.Product, error) {
	max = searchLimit(max)
	if !f.creds.Configured() {
		return f.mockSearch(reasonNoCredential, max), nil
	}

	searchURL := f.rules.Origin + "/s?k=" + url.QueryEscape(strings.TrimSpace(keywords))
	products, err := f.searchPage(ctx, searchURL, max)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.logger.Warn("search failed", "keywords", keywords, "error", err)
		return f.mockSearch(reasonFallbackMock, max), nil
	}
	if len(products) == 0 {
		return f.mockSearch(reasonFallbackMock, max), nil
	}
	return products, nil
}

// AliExpress scrapes both product and search pages; credentials only carry
// the tracking tag.
type AliExpress struct {
	*Assembler
}

func NewAliExpress(deps Deps) *AliExpress {
	return &AliExpress{Assembler: newAssembler(models.StoreAliExpress, deps.withDefaults())}
}

func (f *AliExpress) FetchByURL(ctx context.Context, raw string) (*models.Product, error) {
	return f.Assemble(ctx, raw)
}

func (f *AliExpress) FetchByID(ctx context.Context, id string) (*models.Product, error) {
	return f.AssembleID(ctx, id)
}

func (f *AliExpress) Search(ctx context.Context, keywords string, max int) ([]*models.Product, error) {
	max = searchLimit(max)
	searchURL := f.rules.Origin + "/wholesale?SearchText=" + url.QueryEscape(strings.TrimSpace(keywords))

	products, err := f.searchPage(ctx, searchURL, max)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.logger.Warn("search failed", "keywords", keywords, "error", err)
		return f.mockSearch(reasonFallbackMock, max), nil
	}
	if len(products) == 0 {
		f.logger.Info("no products found on search page", "keywords", keywords)
		return f.mockSearch(reasonFallbackMock, max), nil
	}
	return products, nil
}

// Ebay is API only: without an app id every fetch is a mock. Search always
// serves the mock catalog.
type Ebay struct {
	*Assembler
}

func NewEbay(deps Deps) *Ebay {
	a := newAssembler(models.StoreEbay, deps.withDefaults())
	a.mockOnly = !a.creds.Configured()
	return &Ebay{Assembler: a}
}

func (f *Ebay) FetchByURL(ctx context.Context, raw string) (*models.Product, error) {
	return f.Assemble(ctx, raw)
}

func (f *Ebay) FetchByID(ctx context.Context, id string) (*models.Product, error) {
	return f.AssembleID(ctx, id)
}

func (f *Ebay) Search(_ context.Context, _ string, max int) ([]*models.Product, error) {
	reason := reasonFallbackMock
	if !f.creds.Configured() {
		reason = reasonNoCredential
	}
	return f.mockSearch(reason, searchLimit(max)), nil
}
