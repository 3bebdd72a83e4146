package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maltedev/affiliate-product-fetcher/internal/links"
	"github.com/maltedev/affiliate-product-fetcher/internal/models"
)

type storeFetcher interface {
	Fetcher
	assembler() *Assembler
}

// Service is the inbound surface of the pipeline used by the API and CLI.
type Service struct {
	fetchers map[models.Store]Fetcher
	walkers  map[models.Store]*CategoryWalker
	logger   *slog.Logger
}

func NewService(deps Deps) *Service {
	deps = deps.withDefaults()

	s := &Service{
		fetchers: make(map[models.Store]Fetcher, len(models.Stores)),
		walkers:  make(map[models.Store]*CategoryWalker, len(models.Stores)),
		logger:   deps.Logger.With("component", "service"),
	}
	for _, f := range []storeFetcher{NewAmazon(deps), NewAliExpress(deps), NewEbay(deps)} {
		s.fetchers[f.Store()] = f
		s.walkers[f.Store()] = NewCategoryWalker(f.assembler(), deps)
	}
	return s
}

// Fetcher returns the fetcher registered for name.
func (s *Service) Fetcher(name string) (Fetcher, error) {
	store, ok := models.ParseStore(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, name)
	}
	return s.fetchers[store], nil
}

// storeFor picks the hinted store, or infers it from the URL host.
func (s *Service) storeFor(hint, rawURL string) (Fetcher, error) {
	if strings.TrimSpace(hint) != "" {
		return s.Fetcher(hint)
	}
	return s.fetchers[links.DetectStore(rawURL)], nil
}

// FetchByURL returns the product behind rawURL. Rejected links and links
// without an identifier are reported as ErrNotFound.
func (s *Service) FetchByURL(ctx context.Context, rawURL, storeHint string) (*models.Product, error) {
	f, err := s.storeFor(storeHint, rawURL)
	if err != nil {
		return nil, err
	}

	p, err := f.FetchByURL(ctx, rawURL)
	if err != nil {
		if errors.Is(err, ErrRejected) || errors.Is(err, ErrNoIdentifier) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, err
	}
	return p, nil
}

func (s *Service) Search(ctx context.Context, keywords, store string, max int) ([]*models.Product, error) {
	if strings.TrimSpace(keywords) == "" {
		return nil, errors.New("keywords are required")
	}
	if store == "" {
		store = string(models.StoreAmazon)
	}
	f, err := s.Fetcher(store)
	if err != nil {
		return nil, err
	}
	return f.Search(ctx, keywords, max)
}

// FetchCategory walks a listing page of the store inferred from its URL.
func (s *Service) FetchCategory(ctx context.Context, categoryURL string, max int) (*WalkResult, error) {
	if strings.TrimSpace(categoryURL) == "" {
		return nil, errors.New("category url is required")
	}
	return s.walkers[links.DetectStore(categoryURL)].Walk(ctx, categoryURL, max)
}

// ExtractIdentifier derives a record key for a saved product link.
func (s *Service) ExtractIdentifier(rawURL string) string {
	f, _ := s.storeFor("", rawURL)
	return f.ExtractIdentifier(rawURL)
}
