// Package feed implements the reactive projection: observable values that
// replay their current state to each new subscriber and push every later
// state to all live subscribers.
package feed

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/mesh-intelligence/pantry/internal/serial"
)

// Feed holds a current value of type T. Deliveries run on the delivery queue,
// so subscriber callbacks never run concurrently with one another.
type Feed[T any] struct {
	name  string
	queue *serial.Queue
	clone func(T) T

	mu      sync.Mutex
	value   T
	version uint64

	subs      *xsync.MapOf[string, *Subscription[T]]
	delivered func(feed string)
}

// Subscription is a live registration on a Feed.
type Subscription[T any] struct {
	id        string
	feed      *Feed[T]
	fn        func(T)
	last      uint64 // touched only on the delivery queue
	cancelled atomic.Bool
}

// New creates a feed holding initial. clone copies a value before it is
// handed out; nil means values are handed out as is.
func New[T any](name string, queue *serial.Queue, initial T, clone func(T) T) *Feed[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &Feed[T]{
		name:    name,
		queue:   queue,
		clone:   clone,
		value:   clone(initial),
		version: 1,
		subs:    xsync.NewMapOf[string, *Subscription[T]](),
	}
}

// Name returns the feed name.
func (f *Feed[T]) Name() string { return f.name }

// OnDeliver registers a hook called after each callback invocation.
// Set it before subscribing.
func (f *Feed[T]) OnDeliver(fn func(feed string)) {
	f.delivered = fn
}

// Value returns a copy of the current value.
func (f *Feed[T]) Value() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clone(f.value)
}

// Version returns the number of values the feed has held, counting the
// initial one.
func (f *Feed[T]) Version() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.version
}

// Publish replaces the current value and schedules delivery to every
// subscriber registered at this point.
func (f *Feed[T]) Publish(v T) {
	v = f.clone(v)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.version++
	f.value = v
	ver := f.version
	f.queue.Push(func() {
		f.subs.Range(func(_ string, s *Subscription[T]) bool {
			s.deliver(ver, v)
			return true
		})
	})
}

// Subscribe registers fn and schedules delivery of the current value to fn
// alone. fn then receives every later value in publish order.
func (f *Feed[T]) Subscribe(fn func(T)) *Subscription[T] {
	s := &Subscription[T]{id: newID(), feed: f, fn: fn}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs.Store(s.id, s)
	ver, v := f.version, f.value
	f.queue.Push(func() { s.deliver(ver, v) })
	return s
}

// Subscribers returns the number of live subscriptions.
func (f *Feed[T]) Subscribers() int {
	return f.subs.Size()
}

// ID returns the subscription identifier.
func (s *Subscription[T]) ID() string { return s.id }

// Cancel stops further deliveries. Idempotent.
func (s *Subscription[T]) Cancel() {
	if s.cancelled.CompareAndSwap(false, true) {
		s.feed.subs.Delete(s.id)
	}
}

func (s *Subscription[T]) deliver(ver uint64, v T) {
	if s.cancelled.Load() || ver <= s.last {
		return
	}
	s.last = ver
	s.fn(s.feed.clone(v))
	if s.feed.delivered != nil {
		s.feed.delivered(s.feed.name)
	}
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
