package indexmeta

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsNotOkWithoutError(t *testing.T) {
	m, ok, err := Load(filepath.Join(t.TempDir(), "index.meta"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, m)
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "index.meta")
	want := Metadata{
		Version:      CurrentVersion,
		DataSource:   DataSourceFilesystem,
		SymbolCount:  42,
		FileCount:    7,
		LastModified: 1700000000,
		IndexedPaths: []string{"a.go", "b.go"},
	}

	require.NoError(t, Save(path, want))

	got, ok, err := Load(path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestSave_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "index.meta")
	require.NoError(t, Save(path, Metadata{Version: CurrentVersion}))

	_, ok, err := Load(path)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDataSource_JSONRoundTrip(t *testing.T) {
	for _, ds := range []DataSource{DataSourceFilesystem, DataSourceExternal} {
		path := filepath.Join(t.TempDir(), "index.meta")
		require.NoError(t, Save(path, Metadata{DataSource: ds}))

		got, ok, err := Load(path)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, ds, got.DataSource)
	}
}

func TestDataSource_String(t *testing.T) {
	assert.Equal(t, "filesystem", DataSourceFilesystem.String())
	assert.Equal(t, "external", DataSourceExternal.String())
}
