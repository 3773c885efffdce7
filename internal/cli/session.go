package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/pantry/internal/backend"
	"github.com/mesh-intelligence/pantry/internal/repository"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// flushTimeout bounds how long a command waits for its own writes.
const flushTimeout = 30 * time.Second

// session is an open store plus the repository over it.
type session struct {
	store types.RecordStore
	repo  *repository.Repository
}

// openSession opens the configured backend and builds a repository on it.
func openSession(ctx context.Context, opts *RootOptions) (*session, error) {
	store, err := backend.Open(ctx, opts.settings.Store)
	if err != nil {
		if errors.Is(err, types.ErrBackendUnknown) || errors.Is(err, types.ErrBackendEmpty) {
			return nil, userError("open storage", err)
		}
		return nil, sysError("open storage", err)
	}
	repo, err := repository.New(ctx, store, repository.WithLogger(opts.logger))
	if err != nil {
		store.Close()
		return nil, sysError("open repository", err)
	}
	return &session{store: store, repo: repo}, nil
}

// flush waits for the commands issued so far to take effect.
func (s *session) flush(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	if err := s.repo.Flush(ctx); err != nil {
		return sysError("wait for storage", err)
	}
	return nil
}

// Close stops the repository and then closes the store.
func (s *session) Close() error {
	rerr := s.repo.Close()
	serr := s.store.Close()
	if rerr != nil {
		return fmt.Errorf("close repository: %w", rerr)
	}
	if serr != nil {
		return fmt.Errorf("close store: %w", serr)
	}
	return nil
}
