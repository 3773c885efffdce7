// Package backend opens the record store named by a types.Config.
package backend

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/pantry/internal/dynamo"
	"github.com/mesh-intelligence/pantry/internal/memory"
	"github.com/mesh-intelligence/pantry/internal/sqlite"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Open validates cfg and returns the matching store. The caller closes it.
func Open(ctx context.Context, cfg types.Config) (types.RecordStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var (
		store types.RecordStore
		err   error
	)
	switch cfg.Backend {
	case types.BackendSQLite:
		var b *sqlite.Backend
		if b, err = sqlite.Open(cfg); err == nil {
			store = b
		}
	case types.BackendMemory:
		store = memory.New()
	case types.BackendDynamoDB:
		var s *dynamo.Store
		if s, err = dynamo.Open(ctx, cfg); err == nil {
			store = s
		}
	default:
		err = fmt.Errorf("%w: %q", types.ErrBackendUnknown, cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}
	return store, nil
}
