package vcs

import (
	"os"
	"path/filepath"
	"strings"
)

// DetectionResult describes the repository that contains a path.
type DetectionResult struct {
	// Type is git, jj or colocate.
	Type Type

	// RepoRoot is the directory holding the VCS metadata.
	RepoRoot string

	HasGit bool
	HasJJ  bool

	// IsWorktree is set when .git is a file, as in a linked git worktree.
	IsWorktree bool
}

// Colocated reports whether jj and git share the repository.
func (r *DetectionResult) Colocated() bool {
	return r.HasJJ && r.HasGit
}

// Detect walks up from path to the nearest directory holding .jj or .git.
// The first directory with either marker wins, so a nested repository
// shadows the one around it. It returns ErrNotInVCS when no marker is
// found before the filesystem root.
func Detect(path string) (*DetectionResult, error) {
	current, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	for {
		result := &DetectionResult{RepoRoot: current}

		if info, err := os.Stat(filepath.Join(current, ".jj")); err == nil && info.IsDir() {
			result.HasJJ = true
		}
		if info, err := os.Stat(filepath.Join(current, ".git")); err == nil {
			result.HasGit = true
			result.IsWorktree = info.Mode().IsRegular()
		}

		switch {
		case result.Colocated():
			result.Type = TypeColocate
			return result, nil
		case result.HasJJ:
			result.Type = TypeJJ
			return result, nil
		case result.HasGit:
			result.Type = TypeGit
			return result, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return nil, ErrNotInVCS
		}
		current = parent
	}
}

// PreferredVCS returns the backend to use for colocated repositories.
// TF_VCS set to "git" or "jj" decides; otherwise jj.
func PreferredVCS() Type {
	switch strings.ToLower(os.Getenv("TF_VCS")) {
	case "git":
		return TypeGit
	case "jj", "jujutsu":
		return TypeJJ
	}
	return TypeJJ
}
