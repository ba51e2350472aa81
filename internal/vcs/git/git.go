// Package git resolves the checked-out branch of a working directory.
//
// The tracker only needs one fact from git: the branch name to attribute an
// activity event to. Every call shells out to the git binary with a bounded
// timeout so a hung repository cannot stall event processing.
package git

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/timeforged/timeforged/internal/vcs"
)

// DefaultTimeout bounds a single git invocation.
const DefaultTimeout = 5 * time.Second

// CurrentBranch returns the branch checked out in dir.
//
// It returns vcs.ErrDetached when HEAD is detached and vcs.ErrNotInVCS when
// dir is not inside a repository. Other failures are wrapped as-is.
//
// Example:
//
//	branch, err := git.CurrentBranch(ctx, "/home/me/code/app")
//	if errors.Is(err, vcs.ErrDetached) {
//	    // no branch
//	}
func CurrentBranch(ctx context.Context, dir string) (string, error) {
	output, err := vcs.ExecContext(ctx, DefaultTimeout, dir, "git", "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		if strings.Contains(err.Error(), "not a git repository") {
			return "", fmt.Errorf("%w: %s", vcs.ErrNotInVCS, dir)
		}
		return "", fmt.Errorf("failed to get current branch: %w", err)
	}

	branch := vcs.TrimOutput(output)
	if branch == "" || branch == "HEAD" {
		return "", vcs.ErrDetached
	}
	return branch, nil
}
