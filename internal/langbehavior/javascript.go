package langbehavior

import "github.com/bartolli/codanna/internal/model"

// JavaScriptBehavior uses the shared resolution algorithm unmodified:
// no project-config path aliasing, CommonJS/ESM imports resolve on
// relative paths and last-segment matching alone.
type JavaScriptBehavior struct {
	Defaults
}

func NewJavaScriptBehavior() *JavaScriptBehavior { return &JavaScriptBehavior{} }

func (j *JavaScriptBehavior) LanguageID() string { return "javascript" }

func (j *JavaScriptBehavior) CreateResolutionContext(fileID model.FileId) ResolutionScope {
	return NewBaseScope(fileID, DefaultCompatibility)
}

func (j *JavaScriptBehavior) BuildResolutionContext(fileID model.FileId, path string, imports []model.Import, cache SymbolSource) (ResolutionScope, []model.EnhancedImport) {
	return BuildDefaultResolutionContext(j, fileID, path, imports, cache, nil)
}
