package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/maltedev/affiliate-product-fetcher/internal/models"
	"github.com/maltedev/affiliate-product-fetcher/internal/storage"
)

// ProductRepository stores saved products in postgres, one JSONB document
// per product.
type ProductRepository struct {
	db     *DB
	now    func() time.Time
	logger *slog.Logger
}

var _ storage.Repository = (*ProductRepository)(nil)

func NewProductRepository(db *DB, logger *slog.Logger) *ProductRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProductRepository{
		db:     db,
		now:    time.Now,
		logger: logger.With("component", "product_repository"),
	}
}

func (r *ProductRepository) Add(ctx context.Context, p *models.SavedProduct) (*models.SavedProduct, error) {
	if err := storage.EnsureID(p); err != nil {
		return nil, err
	}

	var merged *models.SavedProduct
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		merged, err = r.addTx(ctx, tx, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// addTx merges p with the locked existing row and upserts the result. The
// advisory lock serializes first-time adds of the same id, which have no row
// for FOR UPDATE to lock yet.
func (r *ProductRepository) addTx(ctx context.Context, tx pgx.Tx, p *models.SavedProduct) (*models.SavedProduct, error) {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, p.ID); err != nil {
		return nil, fmt.Errorf("failed to lock product %s: %w", p.ID, err)
	}

	existing, err := getForUpdate(ctx, tx, p.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	merged := models.Merge(existing, p, r.now())
	if err := upsert(ctx, tx, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*models.SavedProduct, error) {
	var data []byte
	err := r.db.pool.QueryRow(ctx, `SELECT data FROM saved_products WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return decode(data)
}

func (r *ProductRepository) List(ctx context.Context) ([]*models.SavedProduct, error) {
	return r.query(ctx, `SELECT data FROM saved_products ORDER BY position`)
}

func (r *ProductRepository) Update(ctx context.Context, id string, patch models.Patch) (*models.SavedProduct, error) {
	var updated *models.SavedProduct
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		p, err := getForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		p.Apply(patch, r.now())
		updated = p
		return upsert(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *ProductRepository) Remove(ctx context.Context, id string) error {
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM saved_products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to remove product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *ProductRepository) Search(ctx context.Context, query string) ([]*models.SavedProduct, error) {
	pattern := "%" + likeEscaper.Replace(query) + "%"
	return r.query(ctx, `
		SELECT data FROM saved_products
		WHERE data->>'title' ILIKE $1 OR data->>'description' ILIKE $1
		ORDER BY position`, pattern)
}

// Import adds every product with a derivable identifier in one transaction.
func (r *ProductRepository) Import(ctx context.Context, products []*models.SavedProduct) (int, error) {
	count := 0
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		for _, p := range products {
			if p == nil {
				continue
			}
			if err := storage.EnsureID(p); err != nil {
				r.logger.Warn("skipping imported product without identifier", "title", p.Title)
				continue
			}
			if _, err := r.addTx(ctx, tx, p); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ProductRepository) Export(ctx context.Context) (*storage.Export, error) {
	products, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return &storage.Export{
		ExportedAt: r.now(),
		Count:      len(products),
		Products:   products,
	}, nil
}

func (r *ProductRepository) query(ctx context.Context, sql string, args ...any) ([]*models.SavedProduct, error) {
	rows, err := r.db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []*models.SavedProduct{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		p, err := decode(data)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func getForUpdate(ctx context.Context, tx pgx.Tx, id string) (*models.SavedProduct, error) {
	var data []byte
	err := tx.QueryRow(ctx, `SELECT data FROM saved_products WHERE id = $1 FOR UPDATE`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock product: %w", err)
	}
	return decode(data)
}

func upsert(ctx context.Context, tx pgx.Tx, p *models.SavedProduct) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal product: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO saved_products (id, store, data, added_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			store = EXCLUDED.store,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at`,
		p.ID, string(p.Store), data, p.AddedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}
	return nil
}

func decode(data []byte) (*models.SavedProduct, error) {
	var p models.SavedProduct
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode product: %w", err)
	}
	return &p, nil
}
