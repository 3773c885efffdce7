// Package repository is the facade the presentation layer talks to. Commands
// are fire-and-forget: input is validated synchronously, the store work runs
// in the background, and results surface only through the all-records feed
// and the search slot. Storage failures are logged and counted, never
// returned to the caller.
package repository

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"

	"github.com/mesh-intelligence/pantry/internal/feed"
	"github.com/mesh-intelligence/pantry/internal/query"
	"github.com/mesh-intelligence/pantry/internal/serial"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Operation results, used as metric labels.
const (
	resultOK      = "ok"
	resultInvalid = "invalid"
	resultError   = "error"
	resultClosed  = "closed"
)

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger for the repository and everything it builds.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetricsSet records counters into set instead of a private set.
func WithMetricsSet(set *metrics.Set) Option {
	return func(r *Repository) {
		if set != nil {
			r.metrics = set
		}
	}
}

// Repository accepts commands and exposes the reactive projection.
type Repository struct {
	ctx     context.Context
	logger  *slog.Logger
	metrics *metrics.Set

	engine     *query.Engine
	projection *feed.Projection
	writes     *serial.Queue
	deliveries *serial.Queue

	searchSeq atomic.Uint64
	searches  tracker

	mu     sync.RWMutex
	closed bool
}

// New builds a repository over store and loads the initial record set.
// ctx supplies values for background work; its cancellation does not abort
// queued commands. The caller keeps ownership of store.
func New(ctx context.Context, store types.RecordStore, opts ...Option) (*Repository, error) {
	r := &Repository{
		ctx:     context.WithoutCancel(ctx),
		logger:  slog.Default(),
		metrics: metrics.NewSet(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.engine = query.New(store, query.WithLogger(r.logger))
	r.deliveries = serial.New("deliveries", r.logger)

	proj, err := feed.NewProjection(ctx, r.engine, r.deliveries,
		feed.WithLogger(r.logger),
		feed.WithDeliveryHook(r.countDelivery),
	)
	if err != nil {
		r.deliveries.Close()
		return nil, fmt.Errorf("loading records: %w", err)
	}
	proj.Attach(r.engine)
	r.projection = proj
	r.writes = serial.New("writes", r.logger)
	return r, nil
}

// InsertProduct validates quantity and schedules an insert. A
// *types.ValidationError is returned before anything is scheduled.
func (r *Repository) InsertProduct(name, quantity string) error {
	qty, err := types.ParseQuantity(quantity)
	if err != nil {
		r.count(types.OpInsert, resultInvalid)
		return err
	}

	opID := newOpID()
	ok := r.writes.Push(func() {
		id, err := r.engine.Insert(r.ctx, name, qty)
		if err != nil {
			r.fail(types.OpInsert, opID, err, "name", name)
			return
		}
		r.count(types.OpInsert, resultOK)
		r.logger.Debug("product inserted", "op_id", opID, "id", id, "name", name)
	})
	if !ok {
		r.count(types.OpInsert, resultClosed)
		return types.ErrClosed
	}
	return nil
}

// DeleteProduct schedules removal of every record named name.
func (r *Repository) DeleteProduct(name string) error {
	opID := newOpID()
	ok := r.writes.Push(func() {
		n, err := r.engine.DeleteByName(r.ctx, name)
		if err != nil {
			r.fail(types.OpDeleteByName, opID, err, "name", name)
			return
		}
		r.count(types.OpDeleteByName, resultOK)
		r.logger.Debug("products deleted", "op_id", opID, "name", name, "count", n)
	})
	if !ok {
		r.count(types.OpDeleteByName, resultClosed)
		return types.ErrClosed
	}
	return nil
}

// FindProduct looks up name in the background and publishes the matches into
// the search slot. The lookup starts once every command issued before it has
// been applied, so it observes those writes. A newer FindProduct always wins
// over an older one. On a storage failure the slot keeps its previous value.
func (r *Repository) FindProduct(name string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.count(types.OpFindByName, resultClosed)
		return types.ErrClosed
	}

	seq := r.searchSeq.Add(1)
	opID := newOpID()
	r.searches.add()
	ok := r.writes.Push(func() {
		go r.search(seq, opID, name)
	})
	if !ok {
		r.searches.done()
		r.count(types.OpFindByName, resultClosed)
		return types.ErrClosed
	}
	return nil
}

func (r *Repository) search(seq uint64, opID, name string) {
	defer r.searches.done()
	recs, err := r.engine.FindByName(r.ctx, name)
	if err != nil {
		r.projection.SkipSearch(seq)
		r.fail(types.OpFindByName, opID, err, "name", name, "seq", seq)
		return
	}
	r.count(types.OpFindByName, resultOK)
	if !r.projection.PublishSearch(seq, recs) {
		r.logger.Debug("search superseded", "op_id", opID, "seq", seq)
	}
}

// Refresh schedules a reload of the all-records feed from the store so that
// changes made by other processes become visible.
func (r *Repository) Refresh() error {
	ok := r.writes.Push(func() {
		if err := r.projection.Refresh(r.ctx); err != nil {
			r.count(types.OpListAll, resultError)
			return
		}
		r.count(types.OpListAll, resultOK)
	})
	if !ok {
		r.count(types.OpListAll, resultClosed)
		return types.ErrClosed
	}
	return nil
}

// AllProducts is the all-records feed.
func (r *Repository) AllProducts() *feed.Feed[[]types.Record] {
	return r.projection.All
}

// SearchResults is the search slot.
func (r *Repository) SearchResults() *feed.Feed[[]types.Record] {
	return r.projection.Search
}

// Metrics returns the set the repository records into.
func (r *Repository) Metrics() *metrics.Set {
	return r.metrics
}

// WriteMetrics writes the counters in Prometheus text format.
func (r *Repository) WriteMetrics(w io.Writer) {
	r.metrics.WritePrometheus(w)
}

// Flush waits until every command issued before the call has been applied
// and the resulting feed values have been delivered.
func (r *Repository) Flush(ctx context.Context) error {
	if err := r.writes.Barrier(ctx); err != nil {
		return err
	}
	if err := r.searches.wait(ctx); err != nil {
		return err
	}
	return r.deliveries.Barrier(ctx)
}

// Close rejects further commands, finishes queued work, and stops delivery.
// It does not close the store. Idempotent.
func (r *Repository) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.writes.Close()
	if err := r.searches.wait(context.Background()); err != nil {
		return err
	}
	r.deliveries.Close()
	return nil
}

func (r *Repository) fail(op, opID string, err error, attrs ...any) {
	r.count(op, resultError)
	args := append([]any{"op", op, "op_id", opID, "error", err}, attrs...)
	r.logger.Error("storage operation failed", args...)
}

func (r *Repository) count(op, result string) {
	r.metrics.GetOrCreateCounter(fmt.Sprintf(`pantry_operations_total{op=%q,result=%q}`, op, result)).Inc()
}

func (r *Repository) countDelivery(feedName string) {
	r.metrics.GetOrCreateCounter(fmt.Sprintf(`pantry_feed_deliveries_total{feed=%q}`, feedName)).Inc()
}

func newOpID() string {
	return uuid.Must(uuid.NewV7()).String()
}
