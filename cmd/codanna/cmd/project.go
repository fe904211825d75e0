package cmd

import (
	"path/filepath"

	"github.com/bartolli/codanna/internal/config"
	"github.com/bartolli/codanna/internal/docindex"
	"github.com/bartolli/codanna/internal/facade"
	"github.com/bartolli/codanna/internal/langbehavior"
	"github.com/bartolli/codanna/internal/notify"
	"github.com/bartolli/codanna/internal/parserapi"
	"github.com/bartolli/codanna/internal/resolverconfig"
)

// project bundles an open Facade over a single index root together
// with the collaborators reopen needs to rebuild one (spec.md §4.13's
// HotReloader openFacade contract): the same settings, index paths, and
// NotificationBroadcaster every rebuild, so subscribers that predate a
// reload keep receiving events afterward.
type project struct {
	root     string
	settings *config.Settings
	indexDir string
	notifier *notify.Broadcaster

	facade *facade.Facade
	docs   *docindex.Index
}

// openProject loads settings.toml for root (if present) and opens the
// DocumentIndex, EmbeddingStore, and Facade over root's .codanna/index
// layout (spec.md §6.1). No Parser implementation is wired: concrete
// tree-sitter grammars are an external collaborator this core does not
// ship (spec.md §6.5 Non-goal), so index/watch commands here exercise
// the Facade's plumbing without ever actually discovering a parseable
// symbol until a caller supplies a parserapi.Parser.
func openProject(root string) (*project, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	settings, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	indexDir := filepath.Join(root, settings.IndexRoot, "index")
	docs, err := docindex.Open(filepath.Join(indexDir, "documents"))
	if err != nil {
		return nil, err
	}

	p := &project{
		root:     root,
		settings: settings,
		indexDir: indexDir,
		notifier: notify.New(),
		docs:     docs,
	}

	f, err := p.buildFacade(docs)
	if err != nil {
		docs.Close()
		return nil, err
	}
	p.facade = f
	return p, nil
}

func (p *project) buildFacade(docs *docindex.Index) (*facade.Facade, error) {
	languages := langbehavior.NewRegistry(
		langbehavior.NewGoBehavior(),
		langbehavior.NewJavaScriptBehavior(),
		langbehavior.NewPythonBehavior(),
		langbehavior.NewRustBehavior(),
		langbehavior.NewTypeScriptBehavior(resolverconfig.New(p.root, resolverconfig.NewTSConfigResolver("typescript"))),
	)

	return facade.New(facade.Deps{
		Settings:    p.settings,
		Docs:        docs,
		Languages:   languages,
		Parsers:     parserapi.NewParserRegistry(),
		Notifier:    p.notifier,
		SemanticDir: filepath.Join(p.indexDir, "semantic"),
		MetaPath:    filepath.Join(p.indexDir, "index.meta"),
	})
}

// reopen rebuilds the Facade around a freshly opened DocumentIndex at
// the same on-disk path, for the HotReloader's openFacade callback. It
// closes the previously open DocumentIndex first: within a single
// process (unlike the cross-process case spec.md §4.13 targets) bleve
// holds an exclusive file lock on the index directory, so the old and
// new Index cannot coexist.
func (p *project) reopen() (*facade.Facade, error) {
	if err := p.docs.Close(); err != nil {
		return nil, err
	}
	docs, err := docindex.Open(filepath.Join(p.indexDir, "documents"))
	if err != nil {
		return nil, err
	}
	f, err := p.buildFacade(docs)
	if err != nil {
		docs.Close()
		return nil, err
	}
	p.docs = docs
	p.facade = f
	return f, nil
}

func (p *project) metaPath() string {
	return filepath.Join(p.indexDir, "index.meta")
}

func (p *project) Close() error {
	return p.docs.Close()
}
