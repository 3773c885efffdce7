// Package memory provides an in-process types.RecordStore. Nothing is
// persisted; it backs tests and the "memory" backend.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("memory store is closed")

var _ types.RecordStore = (*Store)(nil)

// Store keeps records in insertion order behind a RWMutex.
type Store struct {
	mu      sync.RWMutex
	records []types.Record
	lastID  int64
	closed  bool

	// failWith, when set, is returned by every operation. Used by tests to
	// simulate backend outages.
	failWith error
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{}
}

// Insert appends a record with the next id.
func (s *Store) Insert(_ context.Context, name string, quantity int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(); err != nil {
		return 0, err
	}
	s.lastID++
	s.records = append(s.records, types.Record{ID: s.lastID, Name: name, Quantity: quantity})
	return s.lastID, nil
}

// FindByName returns copies of the records named name.
func (s *Store) FindByName(_ context.Context, name string) ([]types.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkLocked(); err != nil {
		return nil, err
	}
	out := []types.Record{}
	for _, r := range s.records {
		if r.Name == name {
			out = append(out, r)
		}
	}
	return out, nil
}

// DeleteByName removes every record named name.
func (s *Store) DeleteByName(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(); err != nil {
		return 0, err
	}
	kept := s.records[:0]
	var removed int64
	for _, r := range s.records {
		if r.Name == name {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	// Clear the tail so dropped records do not linger in the backing array.
	for i := len(kept); i < len(s.records); i++ {
		s.records[i] = types.Record{}
	}
	s.records = kept
	return removed, nil
}

// ListAll returns a copy of every record.
func (s *Store) ListAll(_ context.Context) ([]types.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkLocked(); err != nil {
		return nil, err
	}
	return types.CloneRecords(s.records), nil
}

// Close marks the store closed. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// FailWith makes every subsequent operation return err until called with nil.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

func (s *Store) checkLocked() error {
	if s.closed {
		return ErrClosed
	}
	return s.failWith
}
