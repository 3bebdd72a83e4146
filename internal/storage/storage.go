package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/maltedev/affiliate-product-fetcher/internal/links"
	"github.com/maltedev/affiliate-product-fetcher/internal/models"
)

var (
	ErrNotFound  = errors.New("saved product not found")
	ErrMissingID = errors.New("product id is required")
)

// Repository persists saved products keyed by product identifier.
type Repository interface {
	Add(ctx context.Context, p *models.SavedProduct) (*models.SavedProduct, error)
	Get(ctx context.Context, id string) (*models.SavedProduct, error)
	List(ctx context.Context) ([]*models.SavedProduct, error)
	Update(ctx context.Context, id string, patch models.Patch) (*models.SavedProduct, error)
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, query string) ([]*models.SavedProduct, error)
	Import(ctx context.Context, products []*models.SavedProduct) (int, error)
	Export(ctx context.Context) (*Export, error)
}

type Export struct {
	ExportedAt time.Time              `json:"exported_at"`
	Count      int                    `json:"count"`
	Products   []*models.SavedProduct `json:"products"`
}

// EnsureID fills p.ID from its affiliate or product URL when it is empty.
func EnsureID(p *models.SavedProduct) error {
	if p.ID != "" {
		return nil
	}
	for _, raw := range []string{p.AffiliateURL, p.URL} {
		if raw == "" {
			continue
		}
		store := p.Store
		if store == "" {
			store = links.DetectStore(raw)
		}
		rules, ok := links.RulesFor(store)
		if !ok {
			continue
		}
		if id := links.ExtractID(rules, links.Normalize(raw)); id != "" {
			p.ID = id
			if p.Store == "" {
				p.Store = store
			}
			return nil
		}
	}
	return ErrMissingID
}

// DecodeImport reads either a bare list of products or an object with a
// "products" list.
func DecodeImport(r io.Reader) ([]*models.SavedProduct, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read import: %w", err)
	}
	data = bytes.TrimSpace(data)

	var products []*models.SavedProduct
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &products); err != nil {
			return nil, fmt.Errorf("failed to decode import list: %w", err)
		}
		return products, nil
	}

	var wrapped struct {
		Products []*models.SavedProduct `json:"products"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode import: %w", err)
	}
	return wrapped.Products, nil
}

// WriteJSON encodes v indented and without HTML escaping so non-ASCII text
// and URLs stay readable.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
