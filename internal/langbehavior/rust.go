package langbehavior

import "github.com/bartolli/codanna/internal/model"

// RustBehavior shares the default scope, visibility, and import
// rules: pub/pub(crate)/private map directly onto
// Public/Package/Private in model.Visibility, which Defaults already
// handles.
type RustBehavior struct {
	Defaults
}

func NewRustBehavior() *RustBehavior { return &RustBehavior{} }

func (r *RustBehavior) LanguageID() string { return "rust" }

func (r *RustBehavior) CreateResolutionContext(fileID model.FileId) ResolutionScope {
	return NewBaseScope(fileID, DefaultCompatibility)
}

func (r *RustBehavior) BuildResolutionContext(fileID model.FileId, path string, imports []model.Import, cache SymbolSource) (ResolutionScope, []model.EnhancedImport) {
	return BuildDefaultResolutionContext(r, fileID, path, imports, cache, nil)
}
