package vcs

import "errors"

// Common errors returned by VCS operations.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, vcs.ErrNotInVCS) {
//	    // no branch to attribute
//	}
var (
	// ErrNotInVCS is returned when the directory is not inside a repository.
	ErrNotInVCS = errors.New("not in a VCS repository")

	// ErrVCSNotAvailable is returned when the backend binary is not in PATH.
	ErrVCSNotAvailable = errors.New("VCS binary not available")

	// ErrDetached is returned when HEAD does not point at a branch.
	ErrDetached = errors.New("not on a branch")

	// ErrTimeout is returned when a VCS command exceeds its timeout.
	ErrTimeout = errors.New("operation timed out")
)
