package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/terratap-core/internal/infrastructure/database"
)

// SQLiteStore keeps each object as a row in the documents table.
// The database must already be migrated.
type SQLiteStore struct {
	db *database.DB
}

// NewSQLiteStore wraps an open, migrated database.
func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Read implements Store.
func (s *SQLiteStore) Read(ctx context.Context, key string) ([]byte, error) {
	body, err := s.db.GetDocument(ctx, key)
	if errors.Is(err, database.ErrDocumentNotFound) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return body, err
}

// Write implements Store.
func (s *SQLiteStore) Write(ctx context.Context, key string, body []byte) error {
	return s.db.PutDocument(ctx, key, body)
}
