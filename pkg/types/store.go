package types

import "context"

// Logical operation names, used in StorageError.Op, change events, logs and
// metrics labels.
const (
	OpInsert       = "insert"
	OpFindByName   = "findByName"
	OpDeleteByName = "deleteByName"
	OpListAll      = "listAll"
)

// RecordStore is the storage backend contract. Implementations return records
// in ascending ID order, which is insertion order. Each call is atomic as seen
// by concurrent readers.
type RecordStore interface {
	// Insert persists a new record and returns its freshly assigned ID.
	// IDs increase monotonically and are never reused.
	Insert(ctx context.Context, name string, quantity int64) (int64, error)

	// FindByName returns every record whose name equals name exactly
	// (case-sensitive). No match is an empty result, not an error.
	FindByName(ctx context.Context, name string) ([]Record, error)

	// DeleteByName removes every record whose name equals name exactly and
	// returns how many were removed. Zero matches is not an error.
	DeleteByName(ctx context.Context, name string) (int64, error)

	// ListAll returns every record.
	ListAll(ctx context.Context) ([]Record, error)

	// Close releases backend resources.
	Close() error
}
