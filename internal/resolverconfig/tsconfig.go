package resolverconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// tsconfigFiles are the manifest names this resolver looks for, walking
// the project tree the same way a tsc invocation would discover the
// nearest config.
var tsconfigFiles = []string{"tsconfig.json", "jsconfig.json"}

// TSConfigResolver implements LanguageConfigResolver for TypeScript and
// JavaScript projects that configure path aliases via
// compilerOptions.baseUrl/paths, grounded on the pack's tsconfig-style
// alias resolution convention named explicitly in spec.md §4.5's
// "tsconfig-style aliases" example.
type TSConfigResolver struct {
	language string // "typescript" or "javascript"
}

// NewTSConfigResolver builds a resolver for the given language id. Both
// "typescript" and "javascript" projects may carry a tsconfig.json (the
// latter via `allowJs`), so one resolver type serves both.
func NewTSConfigResolver(language string) *TSConfigResolver {
	return &TSConfigResolver{language: language}
}

func (t *TSConfigResolver) LanguageID() string { return t.language }

func (t *TSConfigResolver) IsEnabled(enabledLanguages map[string][]string) bool {
	_, ok := enabledLanguages[t.language]
	return ok
}

func (t *TSConfigResolver) ConfigPaths(root string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			switch d.Name() {
			case "node_modules", ".git", "dist", "build", ".codanna":
				return filepath.SkipDir
			}
			return nil
		}
		for _, name := range tsconfigFiles {
			if d.Name() == name {
				found = append(found, path)
				return nil
			}
		}
		return nil
	})
	return found, err
}

// tsconfigCompilerOptions is the subset of tsconfig.json this port
// cares about.
type tsconfigCompilerOptions struct {
	BaseURL string              `json:"baseUrl"`
	Paths   map[string][]string `json:"paths"`
}

type tsconfigFile struct {
	Extends         string                  `json:"extends"`
	CompilerOptions tsconfigCompilerOptions `json:"compilerOptions"`
}

// ParseConfig parses a tsconfig.json/jsconfig.json. JSON with comments
// (tsconfig allows // and /* */ comments) is stripped before
// unmarshaling since encoding/json rejects it outright.
func (t *TSConfigResolver) ParseConfig(path string, content []byte) (ResolutionRules, string, string, error) {
	var tc tsconfigFile
	if err := json.Unmarshal(stripJSONComments(content), &tc); err != nil {
		return ResolutionRules{}, "", "", err
	}

	rules := ResolutionRules{
		BaseURL: tc.CompilerOptions.BaseURL,
		Paths:   tc.CompilerOptions.Paths,
	}

	dir := filepath.Dir(path)

	extends := ""
	if tc.Extends != "" && !strings.Contains(tc.Extends, "/node_modules/") {
		candidate := tc.Extends
		if !strings.HasSuffix(candidate, ".json") {
			candidate += ".json"
		}
		extends = filepath.Clean(filepath.Join(dir, candidate))
	}

	return rules, dir, extends, nil
}

// stripJSONComments removes // line comments and /* */ block comments
// outside of string literals, the minimal amount of JSONC support
// tsconfig.json files commonly rely on.
func stripJSONComments(src []byte) []byte {
	out := make([]byte, 0, len(src))
	inString := false
	inLineComment := false
	inBlockComment := false
	for i := 0; i < len(src); i++ {
		c := src[i]
		if inLineComment {
			if c == '\n' {
				inLineComment = false
				out = append(out, c)
			}
			continue
		}
		if inBlockComment {
			if c == '*' && i+1 < len(src) && src[i+1] == '/' {
				inBlockComment = false
				i++
			}
			continue
		}
		if inString {
			out = append(out, c)
			if c == '\\' && i+1 < len(src) {
				out = append(out, src[i+1])
				i++
				continue
			}
			if c == '"' {
				inString = false
			}
			continue
		}
		switch {
		case c == '"':
			inString = true
			out = append(out, c)
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			inLineComment = true
			i++
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			inBlockComment = true
			i++
		default:
			out = append(out, c)
		}
	}
	return out
}
