package dynamo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/internal/storetest"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

func setupStore(t *testing.T) (*Store, *fakeClient) {
	t.Helper()
	fc := newFakeClient()
	s := New(fc, "products")
	t.Cleanup(func() { s.Close() })
	return s, fc
}

func TestStore(t *testing.T) {
	storetest.Run(t, "DynamoDB", func(t *testing.T) types.RecordStore {
		s, _ := setupStore(t)
		return s
	})
}

func TestStore_CounterItemHidden(t *testing.T) {
	s, fc := setupStore(t)
	ctx := context.Background()

	id, err := s.Insert(ctx, "Apples", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	// Counter item plus one record.
	assert.Len(t, fc.items, 2)

	recs, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.Record{{ID: 1, Name: "Apples", Quantity: 10}}, recs)
}

func TestStore_ScanPaginates(t *testing.T) {
	s, fc := setupStore(t)
	ctx := context.Background()
	fc.pageSize = 2

	for i := 0; i < 7; i++ {
		_, err := s.Insert(ctx, fmt.Sprintf("item-%d", i), int64(i))
		require.NoError(t, err)
	}
	fc.scans = 0

	recs, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 7)
	for i, r := range recs {
		assert.Equal(t, int64(i+1), r.ID)
	}
	// 8 items (7 records + counter) in pages of 2.
	assert.Equal(t, 4, fc.scans)
}

func TestStore_DeleteChunksTransactions(t *testing.T) {
	s, fc := setupStore(t)
	ctx := context.Background()
	fc.pageSize = 1000

	for i := 0; i < 2*MaxTransactItems+50; i++ {
		_, err := s.Insert(ctx, "bulk", 1)
		require.NoError(t, err)
	}
	_, err := s.Insert(ctx, "keep", 1)
	require.NoError(t, err)

	n, err := s.DeleteByName(ctx, "bulk")
	require.NoError(t, err)
	assert.Equal(t, int64(2*MaxTransactItems+50), n)

	require.Len(t, fc.transactions, 3)
	assert.Len(t, fc.transactions[0], MaxTransactItems)
	assert.Len(t, fc.transactions[1], MaxTransactItems)
	assert.Len(t, fc.transactions[2], 50)

	recs, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "keep", recs[0].Name)
}

func TestStore_BackendFailure(t *testing.T) {
	s, fc := setupStore(t)
	ctx := context.Background()
	outage := errors.New("service unavailable")
	fc.fail(outage)

	_, err := s.Insert(ctx, "Apples", 1)
	assert.ErrorIs(t, err, outage)
	_, err = s.FindByName(ctx, "Apples")
	assert.ErrorIs(t, err, outage)
	_, err = s.DeleteByName(ctx, "Apples")
	assert.ErrorIs(t, err, outage)
	_, err = s.ListAll(ctx)
	assert.ErrorIs(t, err, outage)
}

func TestStore_Closed(t *testing.T) {
	s, _ := setupStore(t)
	require.NoError(t, s.Close())

	_, err := s.Insert(context.Background(), "Apples", 1)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.ListAll(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpen_Validation(t *testing.T) {
	_, err := Open(context.Background(), types.Config{Backend: types.BackendDynamoDB})
	assert.ErrorIs(t, err, types.ErrDynamoTableEmpty)

	_, err = Open(context.Background(), types.Config{Backend: types.BackendSQLite, DataDir: "x"})
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
}

func TestOpen_StaticCredentials(t *testing.T) {
	s, err := Open(context.Background(), types.Config{
		Backend: types.BackendDynamoDB,
		DynamoDB: types.DynamoDBConfig{
			Table:           "products",
			Region:          "eu-central-1",
			Endpoint:        "http://localhost:8000",
			AccessKeyID:     "local",
			SecretAccessKey: "local",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "products", s.table)
	require.NoError(t, s.Close())
}
