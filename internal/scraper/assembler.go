package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/affiliate-product-fetcher/internal/browser"
	"github.com/maltedev/affiliate-product-fetcher/internal/links"
	"github.com/maltedev/affiliate-product-fetcher/internal/metrics"
	"github.com/maltedev/affiliate-product-fetcher/internal/models"
	"github.com/maltedev/affiliate-product-fetcher/internal/parser"
	"github.com/maltedev/affiliate-product-fetcher/internal/resolver"
)

// Terminal reasons logged by the assembler.
const (
	reasonNoIdentifier = "no_identifier"
	reasonFallbackMock = "fallback_mock"
	reasonNoCredential = "no_credentials"
)

// placeholderTag is the value shipped in sample configs; it means "no tag".
const placeholderTag = "your-tag"

// Assembler turns one raw link into a product record:
// classify, resolve, extract the identifier, fetch the canonical page,
// extract fields and build the affiliate URL. A valid identifier always
// yields a product; when the page cannot be fetched or read the product is
// a synthetic mock.
type Assembler struct {
	store     models.Store
	rules     links.Rules
	extractor *parser.Extractor
	resolver  *resolver.Resolver
	client    PageClient
	creds     Credentials

	// mockOnly serves every single-product fetch from mock data.
	mockOnly bool

	pageTimeout   time.Duration
	searchTimeout time.Duration
	vdpTimeout    time.Duration

	metrics *metrics.Metrics
	logger  *slog.Logger
}

func newAssembler(store models.Store, deps Deps) *Assembler {
	rules, _ := links.RulesFor(store)
	profile, _ := parser.ProfileFor(store)
	if origin := deps.Origins[store]; origin != "" {
		rules = rules.WithOrigin(origin)
		profile.Origin = rules.Origin
	}

	return &Assembler{
		store:         store,
		rules:         rules,
		extractor:     parser.New(profile),
		resolver:      resolver.New(deps.Client, deps.ResolveTimeout, deps.Logger),
		client:        deps.Client,
		creds:         deps.Credentials[store],
		pageTimeout:   deps.PageTimeout,
		searchTimeout: deps.SearchTimeout,
		vdpTimeout:    deps.VDPTimeout,
		metrics:       deps.Metrics,
		logger:        deps.Logger.With("component", "assembler", "store", string(store)),
	}
}

func (a *Assembler) assembler() *Assembler { return a }

func (a *Assembler) Store() models.Store { return a.store }

func (a *Assembler) Rules() links.Rules { return a.rules }

// ExtractIdentifier returns the product identifier in raw, or "".
func (a *Assembler) ExtractIdentifier(raw string) string {
	return links.ExtractID(a.rules, links.Normalize(raw))
}

// BuildAffiliateURL writes the configured tag into raw. Without a tag the
// URL is returned unchanged.
func (a *Assembler) BuildAffiliateURL(raw string) string {
	tag := a.creds.Tag
	if tag == placeholderTag {
		tag = ""
	}
	return links.BuildAffiliateURL(a.rules, raw, tag)
}

// Assemble runs the full pipeline for raw. Rejected links return ErrRejected
// and links without an identifier return ErrNoIdentifier; neither produces
// a product.
func (a *Assembler) Assemble(ctx context.Context, raw string) (*models.Product, error) {
	res := a.resolver.Resolve(ctx, a.rules, raw)
	if res.Rejected {
		a.logger.Info("link rejected", "url", raw, "kind", res.Kind, "reason", res.Reason)
		a.metrics.IncFetch(string(a.store), "rejected")
		return nil, fmt.Errorf("%w: %s", ErrRejected, res.Reason)
	}

	id := links.ExtractID(a.rules, res.URL)
	if id == "" {
		a.logger.Info("no identifier in url", "url", res.URL, "kind", res.Kind, "reason", reasonNoIdentifier)
		a.metrics.IncFetch(string(a.store), reasonNoIdentifier)
		return nil, fmt.Errorf("%w: %s", ErrNoIdentifier, res.URL)
	}

	var vdpVideo string
	if a.rules.IsVDP(res.URL) {
		vdpVideo = a.vdpVideo(ctx, res.URL)
	}

	return a.assemble(ctx, id, vdpVideo)
}

// AssembleID runs the pipeline from the page fetch onwards.
func (a *Assembler) AssembleID(ctx context.Context, id string) (*models.Product, error) {
	valid, ok := a.rules.ValidID(id)
	if !ok {
		a.metrics.IncFetch(string(a.store), reasonNoIdentifier)
		return nil, fmt.Errorf("%w: %q", ErrNoIdentifier, id)
	}
	return a.assemble(ctx, valid, "")
}

func (a *Assembler) assemble(ctx context.Context, id, vdpVideo string) (*models.Product, error) {
	logger := a.logger.With("id", id)

	if a.mockOnly {
		logger.Info("credentials not configured, using mock product", "reason", reasonNoCredential)
		return a.mock(id), nil
	}

	p, err := a.Scrape(ctx, id)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn("extraction failed, using mock product", "reason", reasonFallbackMock, "error", err)
		return a.mock(id), nil
	}

	if p.VideoURL == "" && vdpVideo != "" {
		logger.Info("using video from video detail page", "video_url", vdpVideo)
		p.VideoURL = vdpVideo
	}
	a.metrics.IncFetch(string(a.store), "success")
	return p, nil
}

func (a *Assembler) mock(id string) *models.Product {
	p := MockProduct(a.store, id)
	p.AffiliateURL = a.BuildAffiliateURL(p.URL)
	a.metrics.IncFetch(string(a.store), "mock")
	return p
}

// Scrape fetches and extracts the canonical page of id. Unlike Assemble it
// never falls back to mock data.
func (a *Assembler) Scrape(ctx context.Context, id string) (*models.Product, error) {
	pageURL := a.rules.CanonicalURL(id)

	page, err := a.client.GetWithTimeout(ctx, pageURL, a.pageTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	if err := browser.CheckBotProtection(page); err != nil {
		return nil, err
	}
	doc, err := page.Document()
	if err != nil {
		return nil, err
	}

	p := models.NewProduct(a.store, id)
	p.URL = pageURL
	a.extractor.ParseDocument(doc).Apply(p)
	p.EnsureTitle()
	p.AffiliateURL = a.BuildAffiliateURL(pageURL)

	a.logger.Info("scraped product",
		"id", id,
		"title", p.Title,
		"price", p.Price,
		"discount", p.Discount,
		"images", len(p.ImageURLs),
		"has_video", p.VideoURL != "",
		"rating", p.Rating,
		"reviews", p.ReviewsCount)
	return p, nil
}

// vdpVideo reads the demonstration video of a video detail page. Failures
// are not fatal; the canonical page is fetched regardless.
func (a *Assembler) vdpVideo(ctx context.Context, vdpURL string) string {
	page, err := a.client.GetWithTimeout(ctx, vdpURL, a.vdpTimeout)
	if err != nil {
		a.logger.Warn("video detail page fetch failed", "url", vdpURL, "error", err)
		return ""
	}
	doc, err := page.Document()
	if err != nil {
		return ""
	}
	video := a.extractor.Video(doc)
	if video == "" {
		a.logger.Info("no video on video detail page", "url", vdpURL)
	}
	return video
}

// searchPage scrapes product cards from a results page.
func (a *Assembler) searchPage(ctx context.Context, searchURL string, max int) ([]*models.Product, error) {
	page, err := a.client.GetWithTimeout(ctx, searchURL, a.searchTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch search page: %w", err)
	}
	if err := browser.CheckBotProtection(page); err != nil {
		return nil, err
	}
	doc, err := page.Document()
	if err != nil {
		return nil, err
	}

	products := a.extractor.SearchCards(doc, a.rules, max)
	for _, p := range products {
		p.EnsureTitle()
		p.AffiliateURL = a.BuildAffiliateURL(p.URL)
	}
	return products, nil
}

func (a *Assembler) mockSearch(reason string, max int) []*models.Product {
	a.logger.Info("using mock catalog", "reason", reason)
	products := MockCatalog(a.store, max)
	for _, p := range products {
		p.AffiliateURL = a.BuildAffiliateURL(p.URL)
	}
	a.metrics.IncFetch(string(a.store), "mock")
	return products
}
