package ids

import (
	"sync"
	"testing"

	"github.com/bartolli/codanna/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocator_MonotonicOutsideBatch(t *testing.T) {
	a := NewAllocator(PersistedCounters{})

	id1, err := a.NextSymbolId()
	require.NoError(t, err)
	id2, err := a.NextSymbolId()
	require.NoError(t, err)

	assert.Less(t, uint32(id1), uint32(id2))
}

func TestAllocator_PendingCounterIsolatedUntilCommit(t *testing.T) {
	a := NewAllocator(PersistedCounters{NextSymbolId: 5})

	a.StartBatch()
	inBatch, err := a.NextSymbolId()
	require.NoError(t, err)
	assert.Equal(t, uint32(6), uint32(inBatch))

	// Not yet committed: persisted counters snapshot must not reflect
	// the pending allocation.
	assert.Equal(t, uint32(5), uint32(a.Counters().NextSymbolId))

	a.CommitBatch()
	assert.Equal(t, uint32(6), uint32(a.Counters().NextSymbolId))
}

func TestAllocator_AbortDiscardsPending(t *testing.T) {
	a := NewAllocator(PersistedCounters{NextFileId: 10})

	a.StartBatch()
	_, err := a.NextFileId()
	require.NoError(t, err)
	a.AbortBatch()

	// A fresh batch must start from the untouched persisted counter.
	a.StartBatch()
	id, err := a.NextFileId()
	require.NoError(t, err)
	assert.Equal(t, uint32(11), uint32(id))
}

func TestAllocator_NeverReusesIdsAfterCommit(t *testing.T) {
	a := NewAllocator(PersistedCounters{})
	a.StartBatch()
	first, err := a.NextSymbolId()
	require.NoError(t, err)
	a.CommitBatch()

	a.StartBatch()
	second, err := a.NextSymbolId()
	require.NoError(t, err)
	a.CommitBatch()

	assert.Less(t, uint32(first), uint32(second))
}

func TestAllocator_OverflowReturnsIdOverflow(t *testing.T) {
	a := NewAllocator(PersistedCounters{NextSymbolId: model.SymbolId(^uint32(0))})
	_, err := a.NextSymbolId()
	require.Error(t, err)
}

func TestAllocator_ConcurrentAllocationsAreUnique(t *testing.T) {
	a := NewAllocator(PersistedCounters{})
	const n = 200
	ids := make([]uint32, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := a.NextSymbolId()
			require.NoError(t, err)
			ids[i] = uint32(id)
		}(i)
	}
	wg.Wait()

	seen := make(map[uint32]bool, n)
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id allocated: %d", id)
		seen[id] = true
	}
}
