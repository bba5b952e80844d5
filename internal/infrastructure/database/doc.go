// Package database provides the SQLite connection behind the sqlite
// persistence backend.
//
// This package manages:
//   - Opening the database file with WAL mode and a busy timeout
//   - Applying embedded schema migrations
//   - A small key/value documents table holding the JSON-encoded
//     settings and state objects
//
// Usage:
//
//	db, err := database.Open(cfg.Persistence.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are registered by the migrations package at init time and are
// additive only. Each file is named YYYYMMDD_HHMMSS_description.up.sql.
package database
