package resolverconfig

import (
	"os"
	"path/filepath"
	"strings"
)

// GoModResolver implements LanguageConfigResolver for Go modules: it
// has no alias map (Go has none), but carries the module's declared
// path as ResolutionRules.BaseURL so LanguageBehavior can recognize
// same-module imports without re-parsing go.mod itself, grounded on
// standardbeagle-lci's GoResolver.parseGoModContent module-name
// extraction.
type GoModResolver struct{}

// NewGoModResolver builds the Go module-path resolver.
func NewGoModResolver() *GoModResolver { return &GoModResolver{} }

func (g *GoModResolver) LanguageID() string { return "go" }

func (g *GoModResolver) IsEnabled(enabledLanguages map[string][]string) bool {
	_, ok := enabledLanguages["go"]
	return ok
}

func (g *GoModResolver) ConfigPaths(root string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			switch d.Name() {
			case "vendor", ".git", ".codanna":
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == "go.mod" {
			found = append(found, path)
		}
		return nil
	})
	return found, err
}

// ParseConfig extracts the module path from a go.mod's leading "module"
// directive. Go modules don't nest via "extends", so extends is always
// empty; the pattern is the module's root directory.
func (g *GoModResolver) ParseConfig(path string, content []byte) (ResolutionRules, string, string, error) {
	moduleName := ""
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "module ") {
			moduleName = strings.TrimSpace(strings.TrimPrefix(line, "module"))
			if idx := strings.IndexByte(moduleName, ' '); idx > 0 {
				moduleName = moduleName[:idx]
			}
			break
		}
	}
	rules := ResolutionRules{BaseURL: moduleName, Paths: map[string][]string{}}
	return rules, filepath.Dir(path), "", nil
}
