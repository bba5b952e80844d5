package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrDocumentNotFound is returned by GetDocument when no row has the key.
var ErrDocumentNotFound = errors.New("document not found")

// GetDocument returns the body stored under key.
func (db *DB) GetDocument(ctx context.Context, key string) ([]byte, error) {
	var body []byte
	err := db.QueryRowContext(ctx,
		"SELECT body FROM documents WHERE key = ?", key,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", key, ErrDocumentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading document %s: %w", key, err)
	}
	return body, nil
}

// PutDocument inserts or replaces the body stored under key.
func (db *DB) PutDocument(ctx context.Context, key string, body []byte) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO documents (key, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		key, body, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("writing document %s: %w", key, err)
	}
	return nil
}
