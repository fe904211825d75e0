package docindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartolli/codanna/internal/model"
)

func TestIndex_StoreRelationship_SameTripleOverwrites(t *testing.T) {
	// Given: a relationship stored twice with identical endpoints and kind
	ix := newTestIndex(t)
	r := &model.Relationship{FromId: 1, ToId: 2, Kind: model.RelationCalls}

	require.NoError(t, ix.StartBatch())
	require.NoError(t, ix.StoreRelationship(r))
	require.NoError(t, ix.CommitBatch())

	r.Metadata.CallLine = 42
	require.NoError(t, ix.StartBatch())
	require.NoError(t, ix.StoreRelationship(r))
	require.NoError(t, ix.CommitBatch())

	// Then: only one relationship document exists, with the latest metadata
	count, err := ix.CountRelationships()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	rels, err := ix.GetRelationshipsFrom(1, "")
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, uint32(42), rels[0].Metadata.CallLine)
}

func TestIndex_GetRelationshipsFrom_FiltersByKind(t *testing.T) {
	// Given: two relationship kinds from the same origin
	ix := newTestIndex(t)
	require.NoError(t, ix.StartBatch())
	require.NoError(t, ix.StoreRelationship(&model.Relationship{FromId: 1, ToId: 2, Kind: model.RelationCalls}))
	require.NoError(t, ix.StoreRelationship(&model.Relationship{FromId: 1, ToId: 3, Kind: model.RelationUses}))
	require.NoError(t, ix.CommitBatch())

	// When: filtering by kind
	calls, err := ix.GetRelationshipsFrom(1, model.RelationCalls)
	require.NoError(t, err)

	// Then: only the matching kind is returned
	require.Len(t, calls, 1)
	assert.Equal(t, model.SymbolId(2), calls[0].ToId)
}

func TestIndex_DeleteRelationshipsForSymbol_RemovesBothDirections(t *testing.T) {
	// Given: symbol 2 as both source and target of relationships
	ix := newTestIndex(t)
	require.NoError(t, ix.StartBatch())
	require.NoError(t, ix.StoreRelationship(&model.Relationship{FromId: 1, ToId: 2, Kind: model.RelationCalls}))
	require.NoError(t, ix.StoreRelationship(&model.Relationship{FromId: 2, ToId: 3, Kind: model.RelationCalls}))
	require.NoError(t, ix.CommitBatch())

	// When: relationships touching symbol 2 are deleted
	require.NoError(t, ix.StartBatch())
	require.NoError(t, ix.DeleteRelationshipsForSymbol(2))
	require.NoError(t, ix.CommitBatch())

	// Then: no relationships remain
	count, err := ix.CountRelationships()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}
