package activity

import (
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// ignoredComponents are directory names that never produce activity.
var ignoredComponents = map[string]bool{
	".git":         true,
	"node_modules": true,
	"target":       true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	".idea":        true,
	".vscode":      true,
	"dist":         true,
	"build":        true,
	".next":        true,
	".nuxt":        true,
}

// ignoredExtensions are lock files and build artifacts.
var ignoredExtensions = map[string]bool{
	"lock":  true,
	"exe":   true,
	"dll":   true,
	"so":    true,
	"dylib": true,
	"o":     true,
	"a":     true,
	"pyc":   true,
	"pyo":   true,
	"class": true,
	"wasm":  true,
}

// IsIgnoredPath reports whether path lies inside an ignored directory or
// carries an ignored extension. Only the path string is inspected.
func IsIgnoredPath(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if ignoredComponents[part] {
			return true
		}
	}
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	return ext != "" && ignoredExtensions[ext]
}

// IsIgnoredDir reports whether a directory name should be skipped when
// registering watches recursively.
func IsIgnoredDir(name string) bool {
	return ignoredComponents[name]
}

// Filter combines the fixed deny-set with user-configured patterns.
// Patterns use gitignore syntax and are matched against the path relative
// to its watched root when one is known, or the full path otherwise.
//
// A nil *Filter behaves like IsIgnoredPath.
type Filter struct {
	patterns []string
	extra    *ignore.GitIgnore
}

// NewFilter compiles the given gitignore-style patterns.
// Blank lines and comments are skipped by the compiler.
func NewFilter(patterns []string) *Filter {
	f := &Filter{patterns: append([]string(nil), patterns...)}
	if len(patterns) > 0 {
		f.extra = ignore.CompileIgnoreLines(patterns...)
	}
	return f
}

// Patterns returns a copy of the configured extra patterns.
func (f *Filter) Patterns() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.patterns...)
}

// Ignored reports whether path should be dropped. root may be empty.
func (f *Filter) Ignored(root, path string) bool {
	if IsIgnoredPath(path) {
		return true
	}
	if f == nil || f.extra == nil {
		return false
	}
	rel := path
	if root != "" {
		if r, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
	}
	return f.extra.MatchesPath(filepath.ToSlash(rel))
}
