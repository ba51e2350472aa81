// Package vcs resolves which version control system owns a directory and
// asks it for the current ref, so activity events can carry a branch.
//
// Backends live in subpackages and register themselves from init():
//
//   - internal/vcs/git: the checked-out branch
//   - internal/vcs/jj: the nearest local bookmark at or below @
//
// Usage:
//
//	import _ "github.com/timeforged/timeforged/internal/vcs/git"
//
//	ref, err := vcs.CurrentRef(ctx, "/home/me/code/app/internal")
package vcs

import "context"

// Type is a version control backend.
type Type string

const (
	// TypeGit is a git-only repository.
	TypeGit Type = "git"

	// TypeJJ is a jj-only repository.
	TypeJJ Type = "jj"

	// TypeColocate is a repository with both .jj and .git at its root.
	TypeColocate Type = "colocate"
)

// String returns the string representation of the type.
func (t Type) String() string {
	return string(t)
}

// Binary returns the command line tool that serves the type.
func (t Type) Binary() string {
	switch t {
	case TypeGit:
		return "git"
	case TypeJJ:
		return "jj"
	default:
		return ""
	}
}

// VCS is a repository handle bound to its root.
type VCS interface {
	// Name returns the backend type (git or jj).
	Name() Type

	// RepoRoot returns the repository root directory.
	RepoRoot() string

	// CurrentRef returns the branch (git) or bookmark (jj) in effect.
	// ErrDetached means the repository has no ref to report.
	CurrentRef(ctx context.Context) (string, error)
}
