package docindex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartolli/codanna/internal/model"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func TestIndex_StartCommitBatch_AddSymbolVisibleAfterCommit(t *testing.T) {
	// Given: an empty in-memory index
	ix := newTestIndex(t)

	sym := &model.Symbol{
		Id:     1,
		Name:   "ParseConfig",
		Kind:   model.KindFunction,
		FileId: 1,
		Range:  model.Range{StartLine: 10, EndLine: 20},
	}

	// When: a symbol is added inside a batch but not yet committed
	require.NoError(t, ix.StartBatch())
	require.NoError(t, ix.AddSymbol(sym))

	// Then: it is not yet visible to readers
	got, err := ix.FindSymbolByID(1)
	require.NoError(t, err)
	assert.Nil(t, got)

	// When: the batch is committed
	require.NoError(t, ix.CommitBatch())

	// Then: the symbol is visible
	got, err = ix.FindSymbolByID(1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ParseConfig", got.Name)
	assert.Equal(t, model.KindFunction, got.Kind)
}

func TestIndex_AbortBatch_DiscardsPendingWrites(t *testing.T) {
	// Given: an open batch with a pending symbol
	ix := newTestIndex(t)
	require.NoError(t, ix.StartBatch())
	require.NoError(t, ix.AddSymbol(&model.Symbol{Id: 1, Name: "Orphan", Kind: model.KindFunction}))

	// When: the batch is aborted instead of committed
	ix.AbortBatch()

	// Then: starting a fresh batch succeeds and nothing was persisted
	require.NoError(t, ix.StartBatch())
	require.NoError(t, ix.CommitBatch())

	got, err := ix.FindSymbolByID(1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestIndex_CommitBatch_WithoutOpenBatch_IsConcurrencyConflict(t *testing.T) {
	// Given: a fresh index with no open batch
	ix := newTestIndex(t)

	// When/Then: committing fails as a concurrency conflict
	err := ix.CommitBatch()
	require.Error(t, err)
}

func TestIndex_StartBatch_Twice_IsConcurrencyConflict(t *testing.T) {
	// Given: an already-open batch
	ix := newTestIndex(t)
	require.NoError(t, ix.StartBatch())
	defer ix.AbortBatch()

	// When/Then: starting another batch fails
	err := ix.StartBatch()
	require.Error(t, err)
}

func TestIndex_OnCommit_HookRunsAfterCommit(t *testing.T) {
	// Given: a commit hook registered on the index
	ix := newTestIndex(t)
	var fired bool
	ix.OnCommit(func() { fired = true })

	// When: a batch is committed
	require.NoError(t, ix.StartBatch())
	require.NoError(t, ix.AddSymbol(&model.Symbol{Id: 1, Name: "X", Kind: model.KindFunction}))
	require.NoError(t, ix.CommitBatch())

	// Then: the hook fired
	assert.True(t, fired)
}

func TestIndex_StoreFileInfo_RoundTrips(t *testing.T) {
	// Given: a file info record
	ix := newTestIndex(t)
	fi := &model.FileInfo{
		FileId:           1,
		Path:             "/src/main.go",
		ContentHash:      "abc123",
		IndexedTimestamp: time.Now().Truncate(time.Second),
		LanguageId:       "go",
	}

	// When: it is stored and committed
	require.NoError(t, ix.StartBatch())
	require.NoError(t, ix.StoreFileInfo(fi))
	require.NoError(t, ix.CommitBatch())

	// Then: it can be retrieved by path
	got, err := ix.GetFileInfo("/src/main.go")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, fi.ContentHash, got.ContentHash)
	assert.Equal(t, fi.LanguageId, got.LanguageId)
}
