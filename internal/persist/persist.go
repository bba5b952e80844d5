package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Keys of the persisted objects.
const (
	KeySettings = "settings"
	KeyState    = "state"
)

// Store reads and writes raw object bodies by key.
type Store interface {
	// Read returns the stored body, or an error wrapping ErrNotFound.
	Read(ctx context.Context, key string) ([]byte, error)

	// Write replaces the body stored under key.
	Write(ctx context.Context, key string, body []byte) error
}

// Logger is the subset of the hub logger persist uses.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type validator interface {
	Validate() error
}

// LoadOrDefault decodes the object stored under key. If it is absent,
// unreadable, undecodable or fails its own Validate method, the problem is
// logged and def() is returned instead.
func LoadOrDefault[T any](ctx context.Context, store Store, key string, def func() T, logger Logger) T {
	body, err := store.Read(ctx, key)
	if errors.Is(err, ErrNotFound) {
		logger.Info("no persisted copy, using defaults", "key", key)
		return def()
	}
	if err != nil {
		logger.Warn("reading persisted copy failed, using defaults", "key", key, "error", err)
		return def()
	}

	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		logger.Warn("decoding persisted copy failed, using defaults", "key", key, "error", err)
		return def()
	}
	if val, ok := any(v).(validator); ok {
		if err := val.Validate(); err != nil {
			logger.Warn("persisted copy is invalid, using defaults", "key", key, "error", err)
			return def()
		}
	}

	logger.Info("loaded persisted copy", "key", key)
	return v
}

// Save encodes v as indented JSON and writes it under key.
func Save[T any](ctx context.Context, store Store, key string, v T) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := store.Write(ctx, key, body); err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	return nil
}
