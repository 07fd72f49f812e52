package dmn

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStoreBound tests capacity eviction: 101 inserts leave 100 records,
// oldest gone, newest at the head
func TestStoreBound(t *testing.T) {
	store := NewStore(DefaultCapacity)

	for i := 1; i <= 101; i++ {
		store.Insert(NewRecord("", map[string]string{"seq": fmt.Sprintf("%d", i)}))
	}

	records := store.List()
	require.Len(t, records, 100)
	assert.Equal(t, 100, store.Len())

	assert.Equal(t, "101", records[0].Payload["seq"])
	assert.Equal(t, "2", records[99].Payload["seq"])

	for _, rec := range records {
		assert.NotEqual(t, "1", rec.Payload["seq"], "oldest record must be evicted")
	}
}

// TestStoreOrder tests most-recent-first ordering
func TestStoreOrder(t *testing.T) {
	store := NewStore(10)

	store.Insert(NewRecord("first", nil))
	store.Insert(NewRecord("second", nil))
	store.Insert(NewRecord("third", nil))

	records := store.List()
	require.Len(t, records, 3)
	assert.Equal(t, "third", records[0].Label)
	assert.Equal(t, "second", records[1].Label)
	assert.Equal(t, "first", records[2].Label)
}

// TestStoreClear tests the bulk-clear operation
func TestStoreClear(t *testing.T) {
	store := NewStore(10)
	store.Insert(NewRecord("x", nil))
	store.Insert(NewRecord("y", nil))

	store.Clear()

	assert.Equal(t, 0, store.Len())
	assert.Empty(t, store.List())
}

// TestStoreListIsCopy tests that List returns an isolated snapshot
func TestStoreListIsCopy(t *testing.T) {
	store := NewStore(10)
	store.Insert(NewRecord("x", nil))

	records := store.List()
	records[0].Label = "mutated"

	assert.Equal(t, "x", store.List()[0].Label)
}

// TestStoreRecordIDsUnique tests generation-time-unique record IDs
func TestStoreRecordIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		rec := NewRecord("", nil)
		assert.False(t, seen[rec.ID])
		seen[rec.ID] = true
	}
}
