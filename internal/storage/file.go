package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/maltedev/affiliate-product-fetcher/internal/models"
)

type fileData struct {
	LastUpdated time.Time              `json:"last_updated"`
	Products    []*models.SavedProduct `json:"products"`
}

// FileStore keeps saved products in one JSON file. Products are held in
// insertion order; re-adding a product replaces it in place.
type FileStore struct {
	mu       sync.RWMutex
	products []*models.SavedProduct
	index    map[string]int
	filename string
	now      func() time.Time
	logger   *slog.Logger
}

func NewFileStore(filename string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fs := &FileStore{
		index:    make(map[string]int),
		filename: filename,
		now:      time.Now,
		logger:   logger.With("component", "file_store"),
	}

	if err := fs.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return fs, nil
}

func (fs *FileStore) Add(_ context.Context, p *models.SavedProduct) (*models.SavedProduct, error) {
	if err := EnsureID(p); err != nil {
		return nil, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	merged := fs.put(p)
	if err := fs.save(); err != nil {
		return nil, err
	}
	return copyOf(merged), nil
}

// put merges p into the in-memory set. Callers hold the write lock.
func (fs *FileStore) put(p *models.SavedProduct) *models.SavedProduct {
	if i, ok := fs.index[p.ID]; ok {
		merged := models.Merge(fs.products[i], p, fs.now())
		fs.products[i] = merged
		return merged
	}
	merged := models.Merge(nil, p, fs.now())
	fs.index[merged.ID] = len(fs.products)
	fs.products = append(fs.products, merged)
	return merged
}

func (fs *FileStore) Get(_ context.Context, id string) (*models.SavedProduct, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	i, ok := fs.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return copyOf(fs.products[i]), nil
}

func (fs *FileStore) List(_ context.Context) ([]*models.SavedProduct, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	out := make([]*models.SavedProduct, 0, len(fs.products))
	for _, p := range fs.products {
		out = append(out, copyOf(p))
	}
	return out, nil
}

func (fs *FileStore) Update(_ context.Context, id string, patch models.Patch) (*models.SavedProduct, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	i, ok := fs.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	fs.products[i].Apply(patch, fs.now())
	if err := fs.save(); err != nil {
		return nil, err
	}
	return copyOf(fs.products[i]), nil
}

func (fs *FileStore) Remove(_ context.Context, id string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	i, ok := fs.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	fs.products = append(fs.products[:i], fs.products[i+1:]...)
	fs.reindex()
	return fs.save()
}

func (fs *FileStore) Search(_ context.Context, query string) ([]*models.SavedProduct, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var out []*models.SavedProduct
	for _, p := range fs.products {
		if p.Matches(query) {
			out = append(out, copyOf(p))
		}
	}
	return out, nil
}

// Import adds every product with a derivable identifier and reports how many
// were stored.
func (fs *FileStore) Import(_ context.Context, products []*models.SavedProduct) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	count := 0
	for _, p := range products {
		if p == nil {
			continue
		}
		if err := EnsureID(p); err != nil {
			fs.logger.Warn("skipping imported product without identifier", "title", p.Title)
			continue
		}
		fs.put(p)
		count++
	}
	if count == 0 {
		return 0, nil
	}
	if err := fs.save(); err != nil {
		return 0, err
	}
	return count, nil
}

func (fs *FileStore) Export(ctx context.Context) (*Export, error) {
	products, err := fs.List(ctx)
	if err != nil {
		return nil, err
	}
	return &Export{
		ExportedAt: fs.now(),
		Count:      len(products),
		Products:   products,
	}, nil
}

func (fs *FileStore) reindex() {
	fs.index = make(map[string]int, len(fs.products))
	for i, p := range fs.products {
		fs.index[p.ID] = i
	}
}

// save writes to a temp file first and renames it over the target.
func (fs *FileStore) save() error {
	var buf bytes.Buffer
	data := fileData{LastUpdated: fs.now(), Products: fs.products}
	if data.Products == nil {
		data.Products = []*models.SavedProduct{}
	}
	if err := WriteJSON(&buf, data); err != nil {
		return fmt.Errorf("failed to encode products: %w", err)
	}

	if dir := filepath.Dir(fs.filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create storage dir: %w", err)
		}
	}

	tmpFile := fs.filename + ".tmp"
	if err := os.WriteFile(tmpFile, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write products: %w", err)
	}
	return os.Rename(tmpFile, fs.filename)
}

func (fs *FileStore) load() error {
	raw, err := os.ReadFile(fs.filename)
	if err != nil {
		return err
	}

	var data fileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to decode %s: %w", fs.filename, err)
	}

	for _, p := range data.Products {
		if p == nil || EnsureID(p) != nil {
			continue
		}
		if i, ok := fs.index[p.ID]; ok {
			fs.products[i] = p
			continue
		}
		fs.index[p.ID] = len(fs.products)
		fs.products = append(fs.products, p)
	}
	fs.logger.Info("loaded saved products", "count", len(fs.products), "file", fs.filename)
	return nil
}

func copyOf(p *models.SavedProduct) *models.SavedProduct {
	c := *p
	c.ImageURLs = slices.Clone(p.ImageURLs)
	c.CustomImages = slices.Clone(p.CustomImages)
	return &c
}
