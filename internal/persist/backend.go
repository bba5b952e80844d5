package persist

import (
	"context"
	"fmt"

	"github.com/nerrad567/terratap-core/internal/infrastructure/config"
	"github.com/nerrad567/terratap-core/internal/infrastructure/database"
)

// Open builds the Store selected by cfg.Backend. The returned close
// function releases the backend and is safe to call once.
func Open(ctx context.Context, cfg config.PersistenceConfig) (Store, func() error, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		return NewFileStore(cfg.Dir), func() error { return nil }, nil

	case config.BackendSQLite:
		db, err := database.Open(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close() //nolint:errcheck // migration error takes precedence
			return nil, nil, fmt.Errorf("migrating database: %w", err)
		}
		return NewSQLiteStore(db), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown persistence backend %q", cfg.Backend)
	}
}
