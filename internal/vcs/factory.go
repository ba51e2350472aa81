package vcs

import (
	"context"
	"fmt"
	"os/exec"
)

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// usable reports whether t has a registered backend and its binary is
// installed.
func usable(t Type) bool {
	if !IsRegistered(t) {
		return false
	}
	_, err := lookPath(t.Binary())
	return err == nil
}

// GetForPath returns a handle for the repository containing path.
//
// For colocated repositories the PreferredVCS backend is used when it is
// usable, falling back to the other one. It returns ErrNotInVCS outside
// any repository and ErrVCSNotAvailable when no backend for the detected
// type is registered and installed.
func GetForPath(path string) (VCS, error) {
	result, err := Detect(path)
	if err != nil {
		return nil, err
	}

	var candidates []Type
	switch result.Type {
	case TypeColocate:
		if PreferredVCS() == TypeGit {
			candidates = []Type{TypeGit, TypeJJ}
		} else {
			candidates = []Type{TypeJJ, TypeGit}
		}
	default:
		candidates = []Type{result.Type}
	}

	for _, t := range candidates {
		if usable(t) {
			return getConstructor(t)(result.RepoRoot)
		}
	}
	return nil, fmt.Errorf("%w: %s repository at %s", ErrVCSNotAvailable, result.Type, result.RepoRoot)
}

// CurrentRef returns the branch or bookmark in effect for the repository
// containing dir.
func CurrentRef(ctx context.Context, dir string) (string, error) {
	v, err := GetForPath(dir)
	if err != nil {
		return "", err
	}
	return v.CurrentRef(ctx)
}
