package parserapi

import (
	"context"
	"testing"

	"github.com/bartolli/codanna/internal/model"
)

type stubParser struct{ lang string }

func (s stubParser) Parse(ctx context.Context, path string, content []byte) (*model.ParsedFile, error) {
	return &model.ParsedFile{Path: path, Language: s.lang}, nil
}

func (s stubParser) Language() string { return s.lang }

func TestParserRegistry_Lookup(t *testing.T) {
	reg := NewParserRegistry(stubParser{lang: "go"}, stubParser{lang: "python"})

	if reg.Lookup("go") == nil {
		t.Error("expected go parser to be registered")
	}
	if reg.Lookup("ruby") != nil {
		t.Error("expected ruby to be unregistered")
	}

	langs := reg.Languages()
	if len(langs) != 2 {
		t.Errorf("expected 2 languages, got %d", len(langs))
	}
}

func TestParserRegistry_Empty(t *testing.T) {
	reg := NewParserRegistry()
	if reg.Lookup("go") != nil {
		t.Error("expected nil lookup on empty registry")
	}
	if len(reg.Languages()) != 0 {
		t.Error("expected no languages in empty registry")
	}
}
