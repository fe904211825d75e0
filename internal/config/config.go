// Package config loads and validates the indexing core's on-disk
// settings file, .codanna/settings.toml (spec.md §6.1), following the
// teacher's config-layering style: built-in defaults, a project file,
// then environment overrides, validated before use.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// LanguagesConfig maps a language id (e.g. "go", "typescript") to the
// set of file extensions enabled for that language. FileWalker (§4.6)
// filters DISCOVER output against these extensions.
type LanguagesConfig struct {
	Enabled map[string][]string `toml:"enabled"`
}

// PipelineConfig tunes the five-stage Phase 1 pipeline (§4.6).
type PipelineConfig struct {
	WalkerThreads    int `toml:"walker_threads"`
	ReaderThreads    int `toml:"reader_threads"`
	ParserThreads    int `toml:"parser_threads"`
	ChannelCapacity  int `toml:"channel_capacity"`
	BatchSize        int `toml:"batch_size"`
	BatchesPerCommit int `toml:"batches_per_commit"`
}

// EmbeddingsConfig controls the optional embedding lifecycle (§4.9).
type EmbeddingsConfig struct {
	Enabled   bool   `toml:"enabled"`
	Model     string `toml:"model"`
	Dimension int    `toml:"dimension"`
	BatchSize int    `toml:"batch_size"`
}

// WatcherConfig controls the live file watcher (§4.12).
type WatcherConfig struct {
	DebounceMS int `toml:"debounce_ms"`
}

// HotReloadConfig controls the external-index poller (§4.13).
type HotReloadConfig struct {
	CheckIntervalSeconds int `toml:"check_interval_seconds"`
}

// IgnoreConfig names the per-project ignore file alongside VCS ignore
// rules honored by FileWalker.
type IgnoreConfig struct {
	RespectVCSIgnore bool   `toml:"respect_vcs_ignore"`
	IgnoreFile       string `toml:"ignore_file"`
}

// Settings is the full .codanna/settings.toml schema.
type Settings struct {
	Version    int              `toml:"version"`
	IndexRoot  string           `toml:"index_root"`
	Languages  LanguagesConfig  `toml:"languages"`
	Pipeline   PipelineConfig   `toml:"pipeline"`
	Embeddings EmbeddingsConfig `toml:"embeddings"`
	Watcher    WatcherConfig    `toml:"watcher"`
	HotReload  HotReloadConfig  `toml:"hot_reload"`
	Ignore     IgnoreConfig     `toml:"ignore"`
	LogLevel   string           `toml:"log_level"`
}

// defaultEnabledLanguages is the out-of-the-box extension map; it
// covers the languages LanguageBehavior ships default handling for.
func defaultEnabledLanguages() map[string][]string {
	return map[string][]string{
		"go":         {".go"},
		"typescript": {".ts", ".tsx"},
		"javascript": {".js", ".jsx", ".mjs"},
		"python":     {".py"},
		"rust":       {".rs"},
	}
}

// New returns Settings populated with sensible defaults, following the
// teacher's NewConfig pattern of a fully-populated default value rather
// than relying on Go zero values.
func New() *Settings {
	return &Settings{
		Version:   1,
		IndexRoot: ".codanna",
		Languages: LanguagesConfig{Enabled: defaultEnabledLanguages()},
		Pipeline: PipelineConfig{
			WalkerThreads:    max(1, runtime.NumCPU()/2),
			ReaderThreads:    max(1, runtime.NumCPU()/2),
			ParserThreads:    max(1, runtime.NumCPU()-2),
			ChannelCapacity:  256,
			BatchSize:        500,
			BatchesPerCommit: 1,
		},
		Embeddings: EmbeddingsConfig{
			Enabled:   false,
			Model:     "static-768",
			Dimension: 768,
			BatchSize: 256,
		},
		Watcher:   WatcherConfig{DebounceMS: 500},
		HotReload: HotReloadConfig{CheckIntervalSeconds: 5},
		Ignore: IgnoreConfig{
			RespectVCSIgnore: true,
			IgnoreFile:       ".codannaignore",
		},
		LogLevel: "info",
	}
}

// Load resolves settings for an index root: defaults, then
// <dir>/.codanna/settings.toml if present, then CODANNA_* environment
// overrides, validated before return.
func Load(dir string) (*Settings, error) {
	s := New()

	path := filepath.Join(dir, ".codanna", "settings.toml")
	if _, err := os.Stat(path); err == nil {
		if err := s.loadFile(path); err != nil {
			return nil, err
		}
	}

	s.applyEnvOverrides()

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}

func (s *Settings) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	var parsed Settings
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	s.mergeWith(&parsed)
	return nil
}

// mergeWith overlays non-zero fields from other onto s, mirroring the
// teacher's additive merge (a project file only overrides what it sets).
func (s *Settings) mergeWith(other *Settings) {
	if other.Version != 0 {
		s.Version = other.Version
	}
	if other.IndexRoot != "" {
		s.IndexRoot = other.IndexRoot
	}
	if other.Languages.Enabled != nil {
		s.Languages.Enabled = other.Languages.Enabled
	}
	if other.Pipeline.WalkerThreads != 0 {
		s.Pipeline.WalkerThreads = other.Pipeline.WalkerThreads
	}
	if other.Pipeline.ReaderThreads != 0 {
		s.Pipeline.ReaderThreads = other.Pipeline.ReaderThreads
	}
	if other.Pipeline.ParserThreads != 0 {
		s.Pipeline.ParserThreads = other.Pipeline.ParserThreads
	}
	if other.Pipeline.ChannelCapacity != 0 {
		s.Pipeline.ChannelCapacity = other.Pipeline.ChannelCapacity
	}
	if other.Pipeline.BatchSize != 0 {
		s.Pipeline.BatchSize = other.Pipeline.BatchSize
	}
	if other.Pipeline.BatchesPerCommit != 0 {
		s.Pipeline.BatchesPerCommit = other.Pipeline.BatchesPerCommit
	}
	if other.Embeddings.Model != "" {
		s.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimension != 0 {
		s.Embeddings.Dimension = other.Embeddings.Dimension
	}
	if other.Embeddings.BatchSize != 0 {
		s.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	s.Embeddings.Enabled = s.Embeddings.Enabled || other.Embeddings.Enabled
	if other.Watcher.DebounceMS != 0 {
		s.Watcher.DebounceMS = other.Watcher.DebounceMS
	}
	if other.HotReload.CheckIntervalSeconds != 0 {
		s.HotReload.CheckIntervalSeconds = other.HotReload.CheckIntervalSeconds
	}
	if other.Ignore.IgnoreFile != "" {
		s.Ignore.IgnoreFile = other.Ignore.IgnoreFile
	}
	if other.LogLevel != "" {
		s.LogLevel = other.LogLevel
	}
}

// applyEnvOverrides applies CODANNA_* environment variables, the
// highest-precedence layer, mirroring the teacher's AMANMCP_* scheme.
func (s *Settings) applyEnvOverrides() {
	if v := os.Getenv("CODANNA_LOG_LEVEL"); v != "" {
		s.LogLevel = v
	}
	if v := os.Getenv("CODANNA_EMBEDDINGS_ENABLED"); v != "" {
		s.Embeddings.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("CODANNA_WATCHER_DEBOUNCE_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.Watcher.DebounceMS = n
		}
	}
}

// Validate rejects settings that would make the pipeline or watcher
// misbehave rather than merely produce a confusing downstream error.
func (s *Settings) Validate() error {
	if s.Pipeline.BatchSize <= 0 {
		return fmt.Errorf("pipeline.batch_size must be positive, got %d", s.Pipeline.BatchSize)
	}
	if s.Pipeline.BatchesPerCommit <= 0 {
		return fmt.Errorf("pipeline.batches_per_commit must be positive, got %d", s.Pipeline.BatchesPerCommit)
	}
	if s.Pipeline.ChannelCapacity <= 0 {
		return fmt.Errorf("pipeline.channel_capacity must be positive, got %d", s.Pipeline.ChannelCapacity)
	}
	if s.Embeddings.Enabled && s.Embeddings.Dimension <= 0 {
		return fmt.Errorf("embeddings.dimension must be positive when embeddings are enabled")
	}
	if s.Watcher.DebounceMS < 0 {
		return fmt.Errorf("watcher.debounce_ms must be non-negative")
	}
	if s.HotReload.CheckIntervalSeconds <= 0 {
		return fmt.Errorf("hot_reload.check_interval_seconds must be positive")
	}
	return nil
}

// DebounceWindow is s.Watcher.DebounceMS as a time.Duration.
func (s *Settings) DebounceWindow() time.Duration {
	return time.Duration(s.Watcher.DebounceMS) * time.Millisecond
}

// CheckInterval is s.HotReload.CheckIntervalSeconds as a time.Duration.
func (s *Settings) CheckInterval() time.Duration {
	return time.Duration(s.HotReload.CheckIntervalSeconds) * time.Second
}

// WriteTOML serializes s to path, used by project init tooling.
func (s *Settings) WriteTOML(path string) error {
	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ExtensionLanguage builds a reverse lookup from file extension (with
// leading dot, e.g. ".go") to language id, used by FileWalker to
// classify discovered paths.
func (s *Settings) ExtensionLanguage() map[string]string {
	out := make(map[string]string)
	for lang, exts := range s.Languages.Enabled {
		for _, ext := range exts {
			out[ext] = lang
		}
	}
	return out
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
