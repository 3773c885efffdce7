// Package query is the read/write surface over a types.RecordStore. It
// classifies backend failures as *types.StorageError, rejects invalid input
// before it reaches the store, and announces every successful mutation to
// registered change listeners.
package query

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Change describes one applied mutation.
type Change struct {
	Op      string // types.OpInsert or types.OpDeleteByName
	Name    string
	ID      int64 // assigned id, for inserts
	Deleted int64 // rows removed, for deletes
}

// Listener observes applied mutations.
type Listener func(ctx context.Context, c Change)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine wraps a store. Mutations are serialized; reads go straight to the
// store, which guarantees they never observe a partial mutation.
type Engine struct {
	store  types.RecordStore
	logger *slog.Logger

	writeMu sync.Mutex

	listenersMu sync.RWMutex
	listeners   []Listener
}

// New creates an Engine over store.
func New(store types.RecordStore, opts ...Option) *Engine {
	e := &Engine{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnChange registers fn. Listeners run synchronously after each successful
// mutation, in registration order, while the write lock is held; they must
// not call Insert or DeleteByName.
func (e *Engine) OnChange(fn Listener) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Insert validates quantity and adds a record, returning its id.
func (e *Engine) Insert(ctx context.Context, name string, quantity int64) (int64, error) {
	if quantity < 0 {
		return 0, &types.ValidationError{Field: "quantity", Value: strconv.FormatInt(quantity, 10), Message: "must not be negative"}
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	id, err := e.store.Insert(ctx, name, quantity)
	if err != nil {
		return 0, classify(types.OpInsert, err)
	}
	e.logger.Debug("record inserted", "id", id, "name", name, "quantity", quantity)
	e.notify(ctx, Change{Op: types.OpInsert, Name: name, ID: id})
	return id, nil
}

// FindByName returns the records whose name equals name exactly.
func (e *Engine) FindByName(ctx context.Context, name string) ([]types.Record, error) {
	recs, err := e.store.FindByName(ctx, name)
	if err != nil {
		return nil, classify(types.OpFindByName, err)
	}
	return types.CloneRecords(recs), nil
}

// DeleteByName removes every record named name and returns the count.
// A change is announced even when nothing matched.
func (e *Engine) DeleteByName(ctx context.Context, name string) (int64, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	n, err := e.store.DeleteByName(ctx, name)
	if err != nil {
		return 0, classify(types.OpDeleteByName, err)
	}
	e.logger.Debug("records deleted", "name", name, "count", n)
	e.notify(ctx, Change{Op: types.OpDeleteByName, Name: name, Deleted: n})
	return n, nil
}

// ListAll returns every record in id order.
func (e *Engine) ListAll(ctx context.Context) ([]types.Record, error) {
	recs, err := e.store.ListAll(ctx)
	if err != nil {
		return nil, classify(types.OpListAll, err)
	}
	return types.CloneRecords(recs), nil
}

func (e *Engine) notify(ctx context.Context, c Change) {
	e.listenersMu.RLock()
	ls := make([]Listener, len(e.listeners))
	copy(ls, e.listeners)
	e.listenersMu.RUnlock()

	for _, fn := range ls {
		fn(ctx, c)
	}
}

// classify leaves validation and existing storage errors alone and wraps
// anything else as a StorageError for op.
func classify(op string, err error) error {
	if types.IsValidation(err) || types.IsStorage(err) {
		return err
	}
	return types.NewStorageError(op, err)
}
