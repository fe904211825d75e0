// Package resolverconfig implements the ProjectResolver (spec.md §4.4):
// per-language project configuration (path-alias files, package
// manifests) turned into structured ResolutionRules, cached on disk
// under .codanna/index/resolvers/<lang>_resolution.json and rebuilt
// only when a config's content hash changes.
package resolverconfig

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/bartolli/codanna/internal/errors"
)

// ResolutionRules is the per-language, per-config alias table (spec.md
// §3 ResolutionRules): an optional base URL plus a path-alias map, e.g.
// tsconfig.json's compilerOptions.baseUrl/paths.
type ResolutionRules struct {
	BaseURL string              `json:"base_url,omitempty"`
	Paths   map[string][]string `json:"paths,omitempty"`
}

// merge overlays other's non-empty fields onto a copy of r, used when
// resolving a config's "extends" chain: the child's rules win over the
// parent's for any key both define.
func (r ResolutionRules) merge(other ResolutionRules) ResolutionRules {
	out := ResolutionRules{BaseURL: r.BaseURL, Paths: map[string][]string{}}
	for k, v := range r.Paths {
		out.Paths[k] = v
	}
	if other.BaseURL != "" {
		out.BaseURL = other.BaseURL
	}
	for k, v := range other.Paths {
		out.Paths[k] = v
	}
	return out
}

// persistedIndex is the on-disk ResolutionIndex (spec.md §3): sha256 of
// every known config, a pattern->config routing table, and the rules
// computed for each config.
type persistedIndex struct {
	Version         int                        `json:"version"`
	ShaByConfig     map[string]string          `json:"sha_by_config"`
	ConfigByPattern map[string]string          `json:"config_by_pattern"`
	RulesByConfig   map[string]ResolutionRules `json:"rules_by_config"`
}

func newPersistedIndex() *persistedIndex {
	return &persistedIndex{
		Version:         1,
		ShaByConfig:     map[string]string{},
		ConfigByPattern: map[string]string{},
		RulesByConfig:   map[string]ResolutionRules{},
	}
}

// LanguageConfigResolver is implemented once per language whose project
// configuration carries path-alias or module information.
type LanguageConfigResolver interface {
	// LanguageID is the language key this resolver handles, e.g. "typescript".
	LanguageID() string

	// IsEnabled reports whether this resolver should run at all for the
	// current settings (e.g. the language must be in the enabled set).
	IsEnabled(enabledLanguages map[string][]string) bool

	// ConfigPaths discovers every config file this resolver cares about
	// under root, e.g. every tsconfig.json in the tree.
	ConfigPaths(root string) ([]string, error)

	// ParseConfig parses one config's content into ResolutionRules plus
	// the glob-ish directory pattern it governs (its containing
	// directory) and the path of a config it extends, if any (empty if
	// none).
	ParseConfig(path string, content []byte) (rules ResolutionRules, pattern string, extends string, err error)
}

// cacheTTL is how long a loaded persisted index stays fresh before the
// next loadIndex call re-reads it from disk, approximating the spec's
// thread-local disk-read cache — Go has no thread-local storage, so
// every reader shares one short-lived cache per language instead of
// one per OS thread.
const cacheTTL = time.Second

// cacheSize bounds the number of languages whose index is held in
// memory at once; a project registers at most a handful of
// LanguageConfigResolvers, so this is generous headroom, not a tuned limit.
const cacheSize = 64

// Resolver is the ProjectResolver: a registry of LanguageConfigResolvers
// plus the on-disk resolution index each one maintains.
type Resolver struct {
	indexRoot string // e.g. <project>/.codanna/index/resolvers

	resolvers map[string]LanguageConfigResolver
	cache     *expirable.LRU[string, *persistedIndex]
}

// New creates a Resolver rooted at indexRoot (typically
// "<dir>/.codanna/index/resolvers") with the given language resolvers
// registered by LanguageID().
func New(indexRoot string, resolvers ...LanguageConfigResolver) *Resolver {
	r := &Resolver{
		indexRoot: indexRoot,
		resolvers: make(map[string]LanguageConfigResolver, len(resolvers)),
		cache:     expirable.NewLRU[string, *persistedIndex](cacheSize, nil, cacheTTL),
	}
	for _, lr := range resolvers {
		r.resolvers[lr.LanguageID()] = lr
	}
	return r
}

func (r *Resolver) persistPath(language string) string {
	return filepath.Join(r.indexRoot, language+"_resolution.json")
}

// loadIndex returns the cached or freshly-loaded persisted index for a
// language; a missing file is not an error, it yields an empty index.
func (r *Resolver) loadIndex(language string) (*persistedIndex, error) {
	if idx, ok := r.cache.Get(language); ok {
		return idx, nil
	}

	path := r.persistPath(language)
	idx := newPersistedIndex()
	data, err := os.ReadFile(path)
	if err == nil {
		if jsonErr := json.Unmarshal(data, idx); jsonErr != nil {
			return nil, errors.Corruption("resolverconfig.loadIndex", "invalid resolution index json", jsonErr).WithPath(path)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.IOFailure("resolverconfig.loadIndex", path, err)
	}

	r.cache.Add(language, idx)
	return idx, nil
}

func (r *Resolver) saveIndex(language string, idx *persistedIndex) error {
	path := r.persistPath(language)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.IOFailure("resolverconfig.saveIndex", path, err)
	}
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err).WithOperation("resolverconfig.saveIndex")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.IOFailure("resolverconfig.saveIndex", path, err)
	}

	r.cache.Add(language, idx)
	return nil
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// RebuildResult reports what changed during a RebuildCache call.
type RebuildResult struct {
	Language      string
	ChangedPaths  []string // config files whose content changed (or were new)
	ChangedDirs   []string // the directories those configs govern
}

// RebuildCache re-parses every config path for language whose SHA-256
// differs from what's stored, resolves each config's "extends" chain
// (an unchanged parent contributes its already-merged stored rules),
// and persists the updated ResolutionIndex. Configs whose
// hash is unchanged are left alone — this is the cache's whole point.
func (r *Resolver) RebuildCache(root string, language string, enabledLanguages map[string][]string) (RebuildResult, error) {
	result := RebuildResult{Language: language}

	lr, ok := r.resolvers[language]
	if !ok || !lr.IsEnabled(enabledLanguages) {
		return result, nil
	}

	configPaths, err := lr.ConfigPaths(root)
	if err != nil {
		return result, err
	}

	idx, err := r.loadIndex(language)
	if err != nil {
		return result, err
	}

	type parsed struct {
		path    string
		rules   ResolutionRules
		pattern string
		extends string
	}
	byPath := make(map[string]parsed, len(configPaths))

	for _, path := range configPaths {
		content, err := os.ReadFile(path)
		if err != nil {
			return result, errors.IOFailure("resolverconfig.RebuildCache", path, err)
		}
		sha := sha256Hex(content)
		if stored, ok := idx.ShaByConfig[path]; ok && stored == sha {
			continue // unchanged: no re-parse needed
		}

		rules, pattern, extends, err := lr.ParseConfig(path, content)
		if err != nil {
			return result, errors.Wrap(errors.ErrCodeParseFailure, err).WithOperation("resolverconfig.ParseConfig").WithPath(path)
		}
		byPath[path] = parsed{path: path, rules: rules, pattern: pattern, extends: extends}
		idx.ShaByConfig[path] = sha
		result.ChangedPaths = append(result.ChangedPaths, path)
	}

	if len(byPath) == 0 {
		return result, nil
	}

	// Resolve the extends chain: a config whose parent was also
	// reparsed this run must be merged after its parent is resolved.
	// Parents not in this run's changed set are assumed unchanged and
	// read from the persisted rules directly.
	resolved := make(map[string]ResolutionRules, len(byPath))
	var resolve func(path string, seen map[string]bool) ResolutionRules
	resolve = func(path string, seen map[string]bool) ResolutionRules {
		if rules, ok := resolved[path]; ok {
			return rules
		}
		p, isChanged := byPath[path]
		if !isChanged {
			return idx.RulesByConfig[path]
		}
		base := ResolutionRules{Paths: map[string][]string{}}
		if p.extends != "" && !seen[p.extends] {
			seen[p.extends] = true
			base = resolve(p.extends, seen)
		}
		merged := base.merge(p.rules)
		resolved[path] = merged
		return merged
	}

	for path := range byPath {
		rules := resolve(path, map[string]bool{path: true})
		idx.RulesByConfig[path] = rules
		pattern := byPath[path].pattern
		idx.ConfigByPattern[pattern] = path
		result.ChangedDirs = append(result.ChangedDirs, pattern)
	}

	sort.Strings(result.ChangedPaths)
	sort.Strings(result.ChangedDirs)

	return result, r.saveIndex(language, idx)
}

// SelectAffectedFiles filters candidatePaths down to those that live
// under one of changedDirs (by directory-prefix containment), used
// after RebuildCache to know which already-indexed files need their
// enhanced imports recomputed.
func SelectAffectedFiles(changedDirs []string, candidatePaths []string) []string {
	if len(changedDirs) == 0 {
		return nil
	}
	var out []string
	for _, path := range candidatePaths {
		for _, dir := range changedDirs {
			if dir == "" || path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
				out = append(out, path)
				break
			}
		}
	}
	return out
}

// RulesForFile returns the ResolutionRules governing path for language,
// chosen by longest directory-prefix match among the language's known
// config patterns. ok is false if no config governs path (the common
// case for a project with no path aliases).
func (r *Resolver) RulesForFile(language, path string) (rules ResolutionRules, ok bool) {
	idx, err := r.loadIndex(language)
	if err != nil || idx == nil {
		return ResolutionRules{}, false
	}

	bestPattern := ""
	bestConfig := ""
	for pattern, configPath := range idx.ConfigByPattern {
		if pattern != "" && pattern != path && !strings.HasPrefix(path, pattern+string(filepath.Separator)) {
			continue
		}
		if len(pattern) >= len(bestPattern) {
			bestPattern = pattern
			bestConfig = configPath
		}
	}
	if bestConfig == "" {
		return ResolutionRules{}, false
	}
	rules, ok = idx.RulesByConfig[bestConfig]
	return rules, ok
}
