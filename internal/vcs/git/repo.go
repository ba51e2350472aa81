package git

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/timeforged/timeforged/internal/vcs"
)

func init() {
	vcs.Register(vcs.TypeGit, New)
}

// Repo is a git working tree.
type Repo struct {
	root string
}

// New returns a handle for the git repository rooted at repoRoot.
func New(repoRoot string) (vcs.VCS, error) {
	abs, err := filepath.Abs(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repository root: %w", err)
	}
	return &Repo{root: abs}, nil
}

func (r *Repo) Name() vcs.Type   { return vcs.TypeGit }
func (r *Repo) RepoRoot() string { return r.root }

// CurrentRef returns the checked-out branch.
func (r *Repo) CurrentRef(ctx context.Context) (string, error) {
	return CurrentBranch(ctx, r.root)
}
