package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew_ReturnsDefaults(t *testing.T) {
	s := New()

	if s.Version != 1 {
		t.Errorf("expected version 1, got %d", s.Version)
	}
	if s.IndexRoot != ".codanna" {
		t.Errorf("expected index_root .codanna, got %s", s.IndexRoot)
	}
	if len(s.Languages.Enabled["go"]) == 0 {
		t.Error("expected go to be enabled by default")
	}
	if s.Pipeline.BatchSize != 500 {
		t.Errorf("expected batch_size 500, got %d", s.Pipeline.BatchSize)
	}
	if s.Pipeline.BatchesPerCommit != 1 {
		t.Errorf("expected batches_per_commit 1, got %d", s.Pipeline.BatchesPerCommit)
	}
	if s.Embeddings.Enabled {
		t.Error("expected embeddings disabled by default")
	}
	if s.Embeddings.Dimension != 768 {
		t.Errorf("expected default dimension 768, got %d", s.Embeddings.Dimension)
	}
	if s.Watcher.DebounceMS != 500 {
		t.Errorf("expected debounce_ms 500, got %d", s.Watcher.DebounceMS)
	}
	if s.HotReload.CheckIntervalSeconds != 5 {
		t.Errorf("expected check_interval_seconds 5, got %d", s.HotReload.CheckIntervalSeconds)
	}
	if !s.Ignore.RespectVCSIgnore {
		t.Error("expected respect_vcs_ignore true by default")
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		fn   func(*Settings)
	}{
		{"zero batch size", func(s *Settings) { s.Pipeline.BatchSize = 0 }},
		{"zero batches per commit", func(s *Settings) { s.Pipeline.BatchesPerCommit = 0 }},
		{"zero channel capacity", func(s *Settings) { s.Pipeline.ChannelCapacity = 0 }},
		{"embeddings enabled with zero dimension", func(s *Settings) {
			s.Embeddings.Enabled = true
			s.Embeddings.Dimension = 0
		}},
		{"negative debounce", func(s *Settings) { s.Watcher.DebounceMS = -1 }},
		{"zero check interval", func(s *Settings) { s.HotReload.CheckIntervalSeconds = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := New()
			tc.fn(s)
			if err := s.Validate(); err == nil {
				t.Errorf("expected validation error for %s", tc.name)
			}
		})
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	s, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Pipeline.BatchSize != 500 {
		t.Errorf("expected default batch size, got %d", s.Pipeline.BatchSize)
	}
}

func TestLoad_MergesProjectFile(t *testing.T) {
	tmpDir := t.TempDir()
	codannaDir := filepath.Join(tmpDir, ".codanna")
	if err := os.MkdirAll(codannaDir, 0o755); err != nil {
		t.Fatalf("failed to create .codanna dir: %v", err)
	}

	tomlContent := `
version = 1
index_root = ".codanna"

[pipeline]
batch_size = 1000

[watcher]
debounce_ms = 1000
`
	settingsPath := filepath.Join(codannaDir, "settings.toml")
	if err := os.WriteFile(settingsPath, []byte(tomlContent), 0o644); err != nil {
		t.Fatalf("failed to write settings file: %v", err)
	}

	s, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Pipeline.BatchSize != 1000 {
		t.Errorf("expected overridden batch_size 1000, got %d", s.Pipeline.BatchSize)
	}
	if s.Watcher.DebounceMS != 1000 {
		t.Errorf("expected overridden debounce_ms 1000, got %d", s.Watcher.DebounceMS)
	}
	// unset fields retain their defaults
	if s.Pipeline.BatchesPerCommit != 1 {
		t.Errorf("expected default batches_per_commit to survive merge, got %d", s.Pipeline.BatchesPerCommit)
	}
}

func TestLoad_RejectsInvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	codannaDir := filepath.Join(tmpDir, ".codanna")
	if err := os.MkdirAll(codannaDir, 0o755); err != nil {
		t.Fatalf("failed to create .codanna dir: %v", err)
	}
	settingsPath := filepath.Join(codannaDir, "settings.toml")
	if err := os.WriteFile(settingsPath, []byte("not valid toml [[["), 0o644); err != nil {
		t.Fatalf("failed to write settings file: %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Error("expected error loading invalid toml")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CODANNA_LOG_LEVEL", "debug")
	t.Setenv("CODANNA_EMBEDDINGS_ENABLED", "true")
	t.Setenv("CODANNA_WATCHER_DEBOUNCE_MS", "250")

	tmpDir := t.TempDir()
	s, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %s", s.LogLevel)
	}
	if !s.Embeddings.Enabled {
		t.Error("expected embeddings enabled via env override")
	}
	if s.Watcher.DebounceMS != 250 {
		t.Errorf("expected debounce_ms 250 via env override, got %d", s.Watcher.DebounceMS)
	}
}

func TestWriteTOMLRoundtrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ".codanna", "settings.toml")

	s := New()
	s.Pipeline.BatchSize = 777
	if err := s.WriteTOML(path); err != nil {
		t.Fatalf("WriteTOML failed: %v", err)
	}

	loaded, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load after write failed: %v", err)
	}
	if loaded.Pipeline.BatchSize != 777 {
		t.Errorf("expected roundtripped batch_size 777, got %d", loaded.Pipeline.BatchSize)
	}
}

func TestExtensionLanguage(t *testing.T) {
	s := New()
	m := s.ExtensionLanguage()
	if m[".go"] != "go" {
		t.Errorf("expected .go -> go, got %s", m[".go"])
	}
	if m[".ts"] != "typescript" {
		t.Errorf("expected .ts -> typescript, got %s", m[".ts"])
	}
}

func TestDebounceWindowAndCheckInterval(t *testing.T) {
	s := New()
	if s.DebounceWindow().Milliseconds() != 500 {
		t.Errorf("expected 500ms debounce window, got %v", s.DebounceWindow())
	}
	if s.CheckInterval().Seconds() != 5 {
		t.Errorf("expected 5s check interval, got %v", s.CheckInterval())
	}
}
