package resolverconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRebuildCacheParsesTSConfigAliases(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tsconfig.json"), `{
		"compilerOptions": {
			"baseUrl": ".",
			"paths": { "@app/*": ["src/app/*"] }
		}
	}`)

	r := New(filepath.Join(root, ".codanna", "index", "resolvers"), NewTSConfigResolver("typescript"))
	enabled := map[string][]string{"typescript": {".ts"}}

	result, err := r.RebuildCache(root, "typescript", enabled)
	require.NoError(t, err)
	require.Len(t, result.ChangedPaths, 1)

	rules, ok := r.RulesForFile("typescript", filepath.Join(root, "src/app/widget.ts"))
	require.True(t, ok)
	require.Equal(t, []string{"src/app/*"}, rules.Paths["@app/*"])
}

func TestRebuildCacheIsIdempotentWhenUnchanged(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tsconfig.json"), `{"compilerOptions":{"baseUrl":"."}}`)

	r := New(filepath.Join(root, ".codanna", "index", "resolvers"), NewTSConfigResolver("typescript"))
	enabled := map[string][]string{"typescript": {".ts"}}

	first, err := r.RebuildCache(root, "typescript", enabled)
	require.NoError(t, err)
	require.Len(t, first.ChangedPaths, 1)

	second, err := r.RebuildCache(root, "typescript", enabled)
	require.NoError(t, err)
	require.Empty(t, second.ChangedPaths)
}

func TestLongestPrefixWins(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tsconfig.json"), `{"compilerOptions":{"paths":{"@root/*":["a/*"]}}}`)
	writeFile(t, filepath.Join(root, "pkg", "tsconfig.json"), `{"compilerOptions":{"paths":{"@pkg/*":["b/*"]}}}`)

	r := New(filepath.Join(root, ".codanna", "index", "resolvers"), NewTSConfigResolver("typescript"))
	enabled := map[string][]string{"typescript": {".ts"}}
	_, err := r.RebuildCache(root, "typescript", enabled)
	require.NoError(t, err)

	rules, ok := r.RulesForFile("typescript", filepath.Join(root, "pkg", "file.ts"))
	require.True(t, ok)
	require.Contains(t, rules.Paths, "@pkg/*")
}

func TestGoModResolverExtractsModulePath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "go.mod"), "module github.com/example/widget\n\ngo 1.22\n")

	r := New(filepath.Join(root, ".codanna", "index", "resolvers"), NewGoModResolver())
	enabled := map[string][]string{"go": {".go"}}
	_, err := r.RebuildCache(root, "go", enabled)
	require.NoError(t, err)

	rules, ok := r.RulesForFile("go", filepath.Join(root, "internal", "x.go"))
	require.True(t, ok)
	require.Equal(t, "github.com/example/widget", rules.BaseURL)
}

func TestSelectAffectedFiles(t *testing.T) {
	changed := []string{filepath.Join("proj", "pkg")}
	candidates := []string{
		filepath.Join("proj", "pkg", "a.go"),
		filepath.Join("proj", "other", "b.go"),
	}
	affected := SelectAffectedFiles(changed, candidates)
	require.Equal(t, []string{filepath.Join("proj", "pkg", "a.go")}, affected)
}
