package activity

import (
	"path/filepath"
	"strings"
)

// ProjectUnderRoot returns the first path component of path below root.
// It reports false when path is not strictly inside root or when the
// component is hidden (starts with a dot).
func ProjectUnderRoot(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	first, _, _ := strings.Cut(rel, string(filepath.Separator))
	if first == "" || strings.HasPrefix(first, ".") {
		return "", false
	}
	return first, true
}

// skippedProjectNames are directory names that are never project names.
var skippedProjectNames = map[string]bool{
	"src":          true,
	"lib":          true,
	"bin":          true,
	"test":         true,
	"tests":        true,
	"spec":         true,
	"node_modules": true,
	".git":         true,
}

// containerDirs are directories whose children are typically projects.
var containerDirs = map[string]bool{
	"home":      true,
	"Users":     true,
	"projects":  true,
	"repos":     true,
	"workspace": true,
	"workSpace": true,
	"code":      true,
	"dev":       true,
	"src":       true,
}

// InferProject guesses a project name for a path that is not under any
// watched root. It walks the ancestors of path and returns the first
// directory whose parent is a well-known container such as "projects" or
// "repos", or whose parent is the filesystem root.
//
// This is a best-effort heuristic used only for manually submitted events.
func InferProject(path string) (string, bool) {
	dir := filepath.Dir(filepath.Clean(path))
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		name := filepath.Base(dir)
		if !skippedProjectNames[name] {
			parentName := filepath.Base(parent)
			if containerDirs[parentName] || filepath.Dir(parent) == parent {
				return name, true
			}
		}
		dir = parent
	}
}
