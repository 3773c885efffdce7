// Package sqlite implements the SQLite record store for pantry.
// The database file lives in the configured data directory and is reopened,
// never recreated, so records survive restarts.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// DBFileName is the database file created inside the data directory.
const DBFileName = "pantry.db"

const driverName = "sqlite"

// ErrDetached is returned by every operation after Close.
var ErrDetached = errors.New("sqlite backend is detached")

// Compile-time interface check.
var _ types.RecordStore = (*Backend)(nil)

// Backend implements types.RecordStore on a single SQLite database.
// The connection pool is limited to one connection, so each statement is
// atomic with respect to concurrent readers.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	db       *sql.DB
	path     string
}

// Open creates DataDir if needed, opens (or creates) the database file and
// applies the schema. Returns a config validation error if config is not a
// valid sqlite configuration.
func Open(config types.Config) (*Backend, error) {
	if config.Backend != types.BackendSQLite {
		return nil, fmt.Errorf("sqlite backend cannot open %q config: %w", config.Backend, types.ErrBackendUnknown)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return OpenPath(filepath.Join(config.DataDir, DBFileName))
}

// OpenPath opens the database at path directly.
func OpenPath(path string) (*Backend, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Backend{
		attached: true,
		db:       db,
		path:     path,
	}, nil
}

// Path returns the database file path.
func (b *Backend) Path() string {
	return b.path
}

// Close releases the database connection. Close is idempotent; after Close
// every operation returns ErrDetached.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// applyPragmas sets the connection options the store relies on.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates the products table and its index if they do not exist.
func applySchema(db *sql.DB) error {
	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
