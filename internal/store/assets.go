package store

import (
	"context"
	"fmt"

	"github.com/genpad/internal/generator"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AssetStore reads and writes user-defined generator assets
type AssetStore struct {
	pool *pgxpool.Pool
}

func NewAssetStore(pool *pgxpool.Pool) *AssetStore {
	return &AssetStore{pool: pool}
}

// ListGeneratorAssets returns owner's generator assets of one category, oldest first
func (s *AssetStore) ListGeneratorAssets(ctx context.Context, owner string, category generator.Category) ([]generator.Asset, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, owner, name, description, category, data
		FROM generator_assets
		WHERE owner = $1 AND category = $2
		ORDER BY created_at, id
	`, owner, string(category))
	if err != nil {
		return nil, fmt.Errorf("failed to list generator assets: %w", err)
	}

	assets, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (generator.Asset, error) {
		var a generator.Asset
		var cat string
		err := row.Scan(&a.ID, &a.Owner, &a.Name, &a.Description, &cat, &a.Data)
		a.Category = generator.Category(cat)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan generator assets: %w", err)
	}
	return assets, nil
}

// CreateAsset stores a new asset and fills in its ID
func (s *AssetStore) CreateAsset(ctx context.Context, a *generator.Asset) error {
	if !a.Category.IsValid() {
		return fmt.Errorf("asset category %q is not a generator category", a.Category)
	}
	a.ID = uuid.NewString()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO generator_assets (id, owner, name, description, category, data)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.ID, a.Owner, a.Name, a.Description, string(a.Category), a.Data)
	if err != nil {
		return fmt.Errorf("failed to create generator asset: %w", err)
	}
	return nil
}
