package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SiteConfigStore holds key/value site configuration keyed by (key, scope, context)
type SiteConfigStore struct {
	pool *pgxpool.Pool
}

func NewSiteConfigStore(pool *pgxpool.Pool) *SiteConfigStore {
	return &SiteConfigStore{pool: pool}
}

// Lookup returns the value for an exact (key, scope, context) match
func (s *SiteConfigStore) Lookup(ctx context.Context, key, scope, scopeContext string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx, `
		SELECT value FROM site_configs
		WHERE key = $1 AND scope = $2 AND context = $3
	`, key, scope, scopeContext).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read site config %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts a value
func (s *SiteConfigStore) Set(ctx context.Context, key, scope, scopeContext, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO site_configs (key, scope, context, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key, scope, context)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, scope, scopeContext, value)
	if err != nil {
		return fmt.Errorf("failed to write site config %s: %w", key, err)
	}
	return nil
}
