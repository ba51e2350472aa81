// Package jj reads bookmarks from Jujutsu repositories.
//
// A jj working-copy change usually has no bookmark of its own; the
// bookmark a user works "on" sits on an ancestor. CurrentRef therefore
// reports the local bookmarks of the closest bookmarked ancestor of @.
// Commands run with --ignore-working-copy so a lookup never snapshots
// the working copy or writes to the repository.
package jj

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/timeforged/timeforged/internal/vcs"
)

// DefaultTimeout bounds a single jj invocation.
const DefaultTimeout = 5 * time.Second

func init() {
	vcs.Register(vcs.TypeJJ, New)
}

// JJ is a jj repository, possibly colocated with git.
type JJ struct {
	root      string
	colocated bool
}

// New returns a handle for the jj repository rooted at repoRoot. The root
// must hold a .jj directory.
func New(repoRoot string) (vcs.VCS, error) {
	abs, err := filepath.Abs(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repository root: %w", err)
	}
	if info, err := os.Stat(filepath.Join(abs, ".jj")); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", vcs.ErrNotInVCS, abs)
	}
	_, gitErr := os.Stat(filepath.Join(abs, ".git"))
	return &JJ{root: abs, colocated: gitErr == nil}, nil
}

func (j *JJ) Name() vcs.Type   { return vcs.TypeJJ }
func (j *JJ) RepoRoot() string { return j.root }

// Colocated reports whether the repository also has a .git directory.
func (j *JJ) Colocated() bool { return j.colocated }

// CurrentRef returns the first local bookmark on the closest bookmarked
// ancestor of @ (including @ itself). It returns vcs.ErrDetached when no
// ancestor carries a bookmark.
func (j *JJ) CurrentRef(ctx context.Context) (string, error) {
	output, err := vcs.ExecContext(ctx, DefaultTimeout, j.root, "jj",
		"log", "--ignore-working-copy", "--no-graph",
		"-r", "latest(::@ & bookmarks())",
		"-T", `local_bookmarks ++ "\n"`,
	)
	if err != nil {
		if strings.Contains(err.Error(), "no jj repo") {
			return "", fmt.Errorf("%w: %s", vcs.ErrNotInVCS, j.root)
		}
		return "", fmt.Errorf("failed to get current bookmark: %w", err)
	}

	bookmark := ParseBookmark(vcs.TrimOutput(output))
	if bookmark == "" {
		return "", vcs.ErrDetached
	}
	return bookmark, nil
}

// ParseBookmark returns the first name in a local_bookmarks rendering.
// jj marks a bookmark that differs from its remote with "*" and a
// conflicted one with "??"; both markers are stripped.
//
// Example:
//
//	ParseBookmark("feature* main") // "feature"
func ParseBookmark(s string) string {
	for _, field := range strings.Fields(s) {
		if name := strings.TrimRight(field, "*?"); name != "" {
			return name
		}
	}
	return ""
}
