package docindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartolli/codanna/internal/ids"
	"github.com/bartolli/codanna/internal/model"
)

func TestIndex_PersistedCounters_ZeroOnEmptyIndex(t *testing.T) {
	// Given: a brand-new index
	ix := newTestIndex(t)

	// When: reading counters before anything was ever stored
	counters, err := ix.PersistedCounters()
	require.NoError(t, err)

	// Then: both counters are zero
	assert.Equal(t, ids.PersistedCounters{}, counters)
}

func TestIndex_StoreCounters_RoundTripsThroughAllocator(t *testing.T) {
	// Given: an allocator that has advanced past a batch
	ix := newTestIndex(t)
	alloc := ids.NewAllocator(ids.PersistedCounters{})
	alloc.StartBatch()
	id1, err := alloc.NextSymbolId()
	require.NoError(t, err)
	alloc.CommitBatch()
	assert.Equal(t, model.SymbolId(1), id1)

	// When: the allocator's counters are persisted and reread
	require.NoError(t, ix.StartBatch())
	require.NoError(t, ix.StoreCounters(alloc.Counters()))
	require.NoError(t, ix.CommitBatch())

	got, err := ix.PersistedCounters()
	require.NoError(t, err)

	// Then: the stored counters match what the allocator produced
	assert.Equal(t, alloc.Counters(), got)
}
