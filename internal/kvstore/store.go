// Package kvstore persists small string values under string keys.
//
// The workspace keeps exactly one durable value today, the query history,
// but the store is generic so a backend can be chosen per deployment:
// an in-memory map for tests and throwaway sessions, a JSON file for a
// single desktop user, SQLite when the file should be queryable, and
// PostgreSQL when several workspaces share state.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/querydesk/internal/config"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("kvstore: store is closed")

// Store is a durable string-to-string map.
//
// Get reports ok=false for a missing key; a missing key is not an error.
// Set overwrites any existing value.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Open builds the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "memory":
		return NewMemoryStore(), nil
	case "file", "":
		return NewFileStore(cfg.Path)
	case "sqlite":
		return OpenSQLite(ctx, cfg.Path)
	case "postgres":
		return OpenPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("kvstore: unknown backend %q", cfg.Backend)
	}
}
