package jj

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/timeforged/timeforged/internal/vcs"
)

func TestParseBookmark(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"main", "main"},
		{"feature* main", "feature"},
		{"wip??", "wip"},
		{"  docs\n", "docs"},
	}

	for _, tt := range tests {
		if got := ParseBookmark(tt.in); got != tt.want {
			t.Errorf("ParseBookmark(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".jj"), 0o755); err != nil {
		t.Fatalf("Mkdir() failed: %v", err)
	}

	v, err := New(root)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if v.Name() != vcs.TypeJJ || v.RepoRoot() != root {
		t.Errorf("New() = %s at %s, want jj at %s", v.Name(), v.RepoRoot(), root)
	}
	if v.(*JJ).Colocated() {
		t.Error("Colocated() = true without .git")
	}

	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatalf("Mkdir() failed: %v", err)
	}
	v, err = New(root)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if !v.(*JJ).Colocated() {
		t.Error("Colocated() = false with .git")
	}
}

func TestNew_NotARepo(t *testing.T) {
	_, err := New(t.TempDir())
	if !errors.Is(err, vcs.ErrNotInVCS) {
		t.Errorf("New() error = %v, want ErrNotInVCS", err)
	}
}

func TestRegistered(t *testing.T) {
	if !vcs.IsRegistered(vcs.TypeJJ) {
		t.Fatal("jj backend is not registered")
	}
}
