package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/genpad/internal/docsync"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DocumentStore implements docsync.DocumentStore on the documents table
type DocumentStore struct {
	pool *pgxpool.Pool
}

func NewDocumentStore(pool *pgxpool.Pool) *DocumentStore {
	return &DocumentStore{pool: pool}
}

// Create inserts a new document and returns it
func (s *DocumentStore) Create(ctx context.Context, owner, name, code string) (docsync.Document, error) {
	doc := docsync.Document{ID: uuid.NewString(), Owner: owner, Name: name, Code: code}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO documents (id, owner, name, code)
		VALUES ($1, $2, $3, $4)
		RETURNING updated_at
	`, doc.ID, owner, name, code).Scan(&doc.UpdatedAt)
	if err != nil {
		return docsync.Document{}, fmt.Errorf("failed to create document: %w", err)
	}
	return doc, nil
}

// Get returns document id if it belongs to owner. Documents of other owners
// are reported as ErrNotFound.
func (s *DocumentStore) Get(ctx context.Context, owner, id string) (docsync.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return docsync.Document{}, fmt.Errorf("document %q: %w", id, ErrNotFound)
	}

	var doc docsync.Document
	err := s.pool.QueryRow(ctx, `
		SELECT id::text, owner, name, code, updated_at
		FROM documents
		WHERE id = $1 AND owner = $2
	`, id, owner).Scan(&doc.ID, &doc.Owner, &doc.Name, &doc.Code, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return docsync.Document{}, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return docsync.Document{}, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

func (s *DocumentStore) UpdateCode(ctx context.Context, owner, id, code string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("document %q: %w", id, ErrNotFound)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE documents SET code = $3, updated_at = NOW()
		WHERE id = $1 AND owner = $2
	`, id, owner, code)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}
