package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mesh-intelligence/pantry/internal/query"
	"github.com/mesh-intelligence/pantry/internal/serial"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Feed names, used in logs and metric labels.
const (
	AllFeed    = "all"
	SearchFeed = "search"
)

// Lister is the read used to recompute the all-records feed.
type Lister interface {
	ListAll(ctx context.Context) ([]types.Record, error)
}

// Option configures a Projection.
type Option func(*Projection)

// WithLogger sets the projection logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Projection) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithDeliveryHook registers fn to run after every subscriber callback on
// either feed.
func WithDeliveryHook(fn func(feed string)) Option {
	return func(p *Projection) { p.delivered = fn }
}

// Projection holds the all-records feed and the search-result slot.
type Projection struct {
	All    *Feed[[]types.Record]
	Search *Feed[[]types.Record]

	src       Lister
	logger    *slog.Logger
	delivered func(feed string)

	searchMu  sync.Mutex
	searchSeq uint64
}

// NewProjection loads the current record set from src and builds both feeds
// on the delivery queue. The search slot starts empty.
func NewProjection(ctx context.Context, src Lister, queue *serial.Queue, opts ...Option) (*Projection, error) {
	p := &Projection{src: src, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}

	initial, err := src.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	p.All = New(AllFeed, queue, initial, types.CloneRecords)
	p.Search = New(SearchFeed, queue, []types.Record{}, types.CloneRecords)
	if p.delivered != nil {
		p.All.OnDeliver(p.delivered)
		p.Search.OnDeliver(p.delivered)
	}
	return p, nil
}

// Refresh recomputes the all-records feed. On failure the feed keeps its
// current value.
func (p *Projection) Refresh(ctx context.Context) error {
	recs, err := p.src.ListAll(ctx)
	if err != nil {
		p.logger.Error("refresh all-records feed", "error", err)
		return err
	}
	p.All.Publish(recs)
	return nil
}

// Attach refreshes the all-records feed after every mutation applied through
// engine. Refreshes run under the engine write lock, so the feed sees
// mutations in application order.
func (p *Projection) Attach(engine *query.Engine) {
	engine.OnChange(func(ctx context.Context, _ query.Change) {
		_ = p.Refresh(ctx)
	})
}

// PublishSearch stores records in the search slot if seq is newer than the
// last published search. Reports whether it published.
func (p *Projection) PublishSearch(seq uint64, records []types.Record) bool {
	p.searchMu.Lock()
	defer p.searchMu.Unlock()

	if seq <= p.searchSeq {
		p.logger.Debug("stale search result dropped", "seq", seq, "current", p.searchSeq)
		return false
	}
	p.searchSeq = seq
	p.Search.Publish(records)
	return true
}

// SkipSearch marks seq as settled without touching the search slot, so results
// of older searches still in flight are dropped. Used when search seq failed.
func (p *Projection) SkipSearch(seq uint64) {
	p.searchMu.Lock()
	defer p.searchMu.Unlock()

	if seq > p.searchSeq {
		p.searchSeq = seq
	}
}
