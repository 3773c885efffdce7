package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/internal/storetest"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

func TestStore(t *testing.T) {
	storetest.Run(t, "Memory", func(t *testing.T) types.RecordStore {
		s := New()
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestStore_ListAllReturnsCopy(t *testing.T) {
	s := New()
	_, err := s.Insert(context.Background(), "Apples", 10)
	require.NoError(t, err)

	recs, err := s.ListAll(context.Background())
	require.NoError(t, err)
	recs[0].Quantity = 0

	again, err := s.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), again[0].Quantity)
}

func TestStore_FailWith(t *testing.T) {
	s := New()
	outage := errors.New("disk gone")
	s.FailWith(outage)

	_, err := s.Insert(context.Background(), "Apples", 1)
	assert.ErrorIs(t, err, outage)
	_, err = s.ListAll(context.Background())
	assert.ErrorIs(t, err, outage)

	s.FailWith(nil)
	_, err = s.Insert(context.Background(), "Apples", 1)
	assert.NoError(t, err)
}

func TestStore_Closed(t *testing.T) {
	s := New()
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.Insert(context.Background(), "Apples", 1)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.FindByName(context.Background(), "Apples")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.DeleteByName(context.Background(), "Apples")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.ListAll(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
