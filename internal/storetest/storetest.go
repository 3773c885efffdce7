// Package storetest provides a behavioural test suite that every
// types.RecordStore implementation runs against.
package storetest

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Factory creates a fresh, empty store for one subtest. The factory is
// responsible for registering cleanup.
type Factory func(t *testing.T) types.RecordStore

// Run runs the full suite against stores produced by factory.
func Run(t *testing.T, name string, factory Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("InsertAssignsIncreasingIDs", func(t *testing.T) {
			testInsertAssignsIncreasingIDs(t, factory(t))
		})
		t.Run("InsertAddsExactlyOneRecord", func(t *testing.T) {
			testInsertAddsExactlyOneRecord(t, factory(t))
		})
		t.Run("FindByName", func(t *testing.T) {
			testFindByName(t, factory(t))
		})
		t.Run("DeleteByName", func(t *testing.T) {
			testDeleteByName(t, factory(t))
		})
		t.Run("DeleteNoMatchIsNoop", func(t *testing.T) {
			testDeleteNoMatchIsNoop(t, factory(t))
		})
		t.Run("IDsNotReused", func(t *testing.T) {
			testIDsNotReused(t, factory(t))
		})
		t.Run("EdgeValues", func(t *testing.T) {
			testEdgeValues(t, factory(t))
		})
		t.Run("Scenario", func(t *testing.T) {
			testScenario(t, factory(t))
		})
		t.Run("ConcurrentReadsSeeWholeMutations", func(t *testing.T) {
			testConcurrentReads(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func mustInsert(t *testing.T, s types.RecordStore, name string, quantity int64) int64 {
	t.Helper()
	id, err := s.Insert(context.Background(), name, quantity)
	require.NoError(t, err)
	return id
}

func mustList(t *testing.T, s types.RecordStore) []types.Record {
	t.Helper()
	recs, err := s.ListAll(context.Background())
	require.NoError(t, err)
	return recs
}

func mustFind(t *testing.T, s types.RecordStore, name string) []types.Record {
	t.Helper()
	recs, err := s.FindByName(context.Background(), name)
	require.NoError(t, err)
	return recs
}

func idsOf(recs []types.Record) []int64 {
	ids := make([]int64, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testInsertAssignsIncreasingIDs(t *testing.T, s types.RecordStore) {
	var last int64
	for i := 0; i < 10; i++ {
		id := mustInsert(t, s, "item", int64(i))
		assert.Greater(t, id, last, "id %d must exceed previous id %d", id, last)
		last = id
	}

	recs := mustList(t, s)
	require.Len(t, recs, 10)
	assert.True(t, sort.SliceIsSorted(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID }))
	for i, r := range recs {
		assert.Equal(t, int64(i), r.Quantity, "listing keeps insertion order")
	}
}

func testInsertAddsExactlyOneRecord(t *testing.T, s types.RecordStore) {
	mustInsert(t, s, "Apples", 10)
	before := mustList(t, s)

	id := mustInsert(t, s, "Pears", 3)
	after := mustList(t, s)

	require.Len(t, after, len(before)+1)
	assert.Equal(t, before, after[:len(before)])
	assert.Equal(t, types.Record{ID: id, Name: "Pears", Quantity: 3}, after[len(after)-1])
	for _, r := range before {
		assert.Greater(t, id, r.ID)
	}
}

func testFindByName(t *testing.T, s types.RecordStore) {
	a1 := mustInsert(t, s, "Apples", 1)
	mustInsert(t, s, "apples", 2)
	mustInsert(t, s, "Bananas", 3)
	a2 := mustInsert(t, s, "Apples", 4)

	tests := []struct {
		name    string
		query   string
		wantIDs []int64
	}{
		{name: "all exact matches in insertion order", query: "Apples", wantIDs: []int64{a1, a2}},
		{name: "case-sensitive", query: "APPLES", wantIDs: []int64{}},
		{name: "no prefix matching", query: "App", wantIDs: []int64{}},
		{name: "no wildcard matching", query: "Appl%", wantIDs: []int64{}},
		{name: "unknown name", query: "Cherries", wantIDs: []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustFind(t, s, tt.query)
			assert.Equal(t, tt.wantIDs, idsOf(got))
			for _, r := range got {
				assert.Equal(t, tt.query, r.Name)
			}
		})
	}

	t.Run("repeated calls return identical results", func(t *testing.T) {
		first := mustFind(t, s, "Apples")
		second := mustFind(t, s, "Apples")
		assert.Equal(t, first, second)
	})
}

func testDeleteByName(t *testing.T, s types.RecordStore) {
	mustInsert(t, s, "Apples", 1)
	keep1 := mustInsert(t, s, "Bananas", 2)
	mustInsert(t, s, "Apples", 3)
	keep2 := mustInsert(t, s, "apples", 4)

	n, err := s.DeleteByName(context.Background(), "Apples")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	assert.Equal(t, []int64{keep1, keep2}, idsOf(mustList(t, s)))
	assert.Empty(t, mustFind(t, s, "Apples"))
}

func testDeleteNoMatchIsNoop(t *testing.T, s types.RecordStore) {
	mustInsert(t, s, "Apples", 1)
	before := mustList(t, s)

	n, err := s.DeleteByName(context.Background(), "Cherries")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.Equal(t, before, mustList(t, s))

	empty, err := s.DeleteByName(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty)
}

func testIDsNotReused(t *testing.T, s types.RecordStore) {
	first := mustInsert(t, s, "Apples", 1)
	second := mustInsert(t, s, "Apples", 2)

	_, err := s.DeleteByName(context.Background(), "Apples")
	require.NoError(t, err)
	require.Empty(t, mustList(t, s))

	third := mustInsert(t, s, "Apples", 3)
	assert.Greater(t, third, second)
	assert.NotEqual(t, first, third)
}

func testEdgeValues(t *testing.T, s types.RecordStore) {
	zero := mustInsert(t, s, "Zero", 0)
	blank := mustInsert(t, s, "", 5)
	unicode := mustInsert(t, s, "Äpfel 🍎", 7)

	assert.Equal(t, []types.Record{
		{ID: zero, Name: "Zero", Quantity: 0},
		{ID: blank, Name: "", Quantity: 5},
		{ID: unicode, Name: "Äpfel 🍎", Quantity: 7},
	}, mustList(t, s))

	assert.Equal(t, []int64{unicode}, idsOf(mustFind(t, s, "Äpfel 🍎")))
	assert.Equal(t, []int64{blank}, idsOf(mustFind(t, s, "")))
}

func testScenario(t *testing.T, s types.RecordStore) {
	apples := mustInsert(t, s, "Apples", 10)
	bananas := mustInsert(t, s, "Bananas", 5)
	require.Greater(t, bananas, apples)

	assert.Equal(t, []types.Record{{ID: apples, Name: "Apples", Quantity: 10}}, mustFind(t, s, "Apples"))

	_, err := s.DeleteByName(context.Background(), "Apples")
	require.NoError(t, err)

	assert.Equal(t, []types.Record{{ID: bananas, Name: "Bananas", Quantity: 5}}, mustList(t, s))
}

// testConcurrentReads deletes whole groups while readers list. A reader must
// never see a group partially removed.
func testConcurrentReads(t *testing.T, s types.RecordStore) {
	const perGroup = 4
	names := []string{"g0", "g1", "g2", "g3", "g4"}
	for _, n := range names {
		for i := 0; i < perGroup; i++ {
			mustInsert(t, s, n, int64(i))
		}
	}

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	stop := make(chan struct{})

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				recs, err := s.ListAll(context.Background())
				if err != nil {
					errs <- err
					return
				}
				counts := map[string]int{}
				for _, rec := range recs {
					counts[rec.Name]++
				}
				for name, c := range counts {
					if c != perGroup {
						t.Errorf("group %s observed with %d of %d records", name, c, perGroup)
						return
					}
				}
			}
		}()
	}

	for _, n := range names {
		_, err := s.DeleteByName(context.Background(), n)
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Empty(t, mustList(t, s))
}
