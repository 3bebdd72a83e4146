package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/affiliate-product-fetcher/internal/browser"
	"github.com/maltedev/affiliate-product-fetcher/internal/metrics"
	"github.com/maltedev/affiliate-product-fetcher/internal/models"
)

var (
	ErrUnknownStore = errors.New("unknown store")
	ErrNoIdentifier = errors.New("no product identifier in url")
	ErrRejected     = errors.New("link rejected")
	ErrNotFound     = errors.New("product not found")
)

// Fetcher is the per-store product capability.
type Fetcher interface {
	Store() models.Store
	Search(ctx context.Context, keywords string, max int) ([]*models.Product, error)
	FetchByURL(ctx context.Context, url string) (*models.Product, error)
	FetchByID(ctx context.Context, id string) (*models.Product, error)
	ExtractIdentifier(url string) string
	BuildAffiliateURL(url string) string
}

// PageClient is the HTTP capability the pipeline consumes.
type PageClient interface {
	GetWithTimeout(ctx context.Context, url string, timeout time.Duration) (*browser.Page, error)
}

// Credentials hold a store's API keys and tracking tag. Missing keys select
// the mock mode for the operations that need them.
type Credentials struct {
	Key    string
	Secret string
	Tag    string
}

func (c Credentials) Configured() bool {
	return c.Key != ""
}

const (
	DefaultPageTimeout   = 15 * time.Second
	DefaultSearchTimeout = 10 * time.Second
	DefaultVDPTimeout    = 10 * time.Second
	DefaultWalkDelay     = time.Second
)

// Deps wires a fetcher to its collaborators.
type Deps struct {
	Client      PageClient
	Credentials map[models.Store]Credentials
	// Origins overrides the store's default scheme and host.
	Origins map[models.Store]string

	PageTimeout    time.Duration
	ResolveTimeout time.Duration
	SearchTimeout  time.Duration
	VDPTimeout     time.Duration
	WalkDelay      time.Duration

	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Client == nil {
		d.Client = browser.New(nil, d.Logger)
	}
	if d.PageTimeout <= 0 {
		d.PageTimeout = DefaultPageTimeout
	}
	if d.SearchTimeout <= 0 {
		d.SearchTimeout = DefaultSearchTimeout
	}
	if d.VDPTimeout <= 0 {
		d.VDPTimeout = DefaultVDPTimeout
	}
	if d.WalkDelay < 0 {
		d.WalkDelay = 0
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}

// New returns the fetcher for a store name. An unknown name is a
// configuration error.
func New(name string, deps Deps) (Fetcher, error) {
	store, ok := models.ParseStore(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: amazon, aliexpress, ebay)", ErrUnknownStore, name)
	}

	switch store {
	case models.StoreAmazon:
		return NewAmazon(deps), nil
	case models.StoreAliExpress:
		return NewAliExpress(deps), nil
	default:
		return NewEbay(deps), nil
	}
}
