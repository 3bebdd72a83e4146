package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/affiliate-product-fetcher/internal/links"
	"github.com/maltedev/affiliate-product-fetcher/internal/metrics"
	"github.com/maltedev/affiliate-product-fetcher/internal/models"
	"github.com/maltedev/affiliate-product-fetcher/internal/parser"
	"github.com/maltedev/affiliate-product-fetcher/internal/ratelimit"
)

const DefaultWalkMax = 20

// IDScraper fetches one product without mock fallback.
type IDScraper interface {
	Scrape(ctx context.Context, id string) (*models.Product, error)
}

type WalkFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

type WalkResult struct {
	URL      string            `json:"url"`
	Found    int               `json:"found"`
	Products []*models.Product `json:"products"`
	Failed   []WalkFailure     `json:"failed"`
}

// CategoryWalker drives product fetches for every identifier a listing page
// links to. Items are fetched one at a time with a fixed delay in between.
type CategoryWalker struct {
	client    PageClient
	rules     links.Rules
	extractor *parser.Extractor
	scraper   IDScraper
	delay     time.Duration
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewCategoryWalker(a *Assembler, deps Deps) *CategoryWalker {
	deps = deps.withDefaults()
	return &CategoryWalker{
		client:    deps.Client,
		rules:     a.rules,
		extractor: a.extractor,
		scraper:   a,
		delay:     deps.WalkDelay,
		timeout:   deps.PageTimeout,
		metrics:   deps.Metrics,
		logger:    deps.Logger.With("component", "category_walker", "store", string(a.store)),
	}
}

// Walk fetches the listing page and up to max of its products in page order.
// Only a failure to load the listing page itself is an error; per-item
// failures are recorded in the result and skipped.
func (w *CategoryWalker) Walk(ctx context.Context, categoryURL string, max int) (*WalkResult, error) {
	if max <= 0 {
		max = DefaultWalkMax
	}
	categoryURL = links.Normalize(categoryURL)
	logger := w.logger.With("url", categoryURL)
	logger.Info("starting category walk", "max", max)

	page, err := w.client.GetWithTimeout(ctx, categoryURL, w.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch category page: %w", err)
	}
	doc, err := page.Document()
	if err != nil {
		return nil, err
	}

	ids := w.extractor.ListingIDs(doc, w.rules)
	result := &WalkResult{
		URL:      categoryURL,
		Found:    len(ids),
		Products: []*models.Product{},
		Failed:   []WalkFailure{},
	}
	if len(ids) == 0 {
		logger.Warn("no product links found on category page")
		return result, nil
	}
	if len(ids) > max {
		ids = ids[:max]
	}
	logger.Info("found product links", "found", result.Found, "fetching", len(ids))

	limiter := ratelimit.NewFixed(w.delay)
	for i, id := range ids {
		if err := limiter.Wait(ctx); err != nil {
			return result, err
		}

		logger.Info("fetching product", "index", i+1, "total", len(ids), "id", id)
		p, err := w.scraper.Scrape(ctx, id)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			logger.Warn("skipping product", "id", id, "error", err)
			result.Failed = append(result.Failed, WalkFailure{ID: id, Error: err.Error()})
			w.metrics.IncWalkItem("failed")
			continue
		}
		result.Products = append(result.Products, p)
		w.metrics.IncWalkItem("success")
	}

	logger.Info("category walk completed", "fetched", len(result.Products), "failed", len(result.Failed))
	return result, nil
}
