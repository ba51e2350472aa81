package watcher

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRegistry_AddRemove(t *testing.T) {
	r := NewRegistry()
	dir := t.TempDir()

	if !r.Add(dir) {
		t.Error("first Add() should return true")
	}
	if r.Add(dir) {
		t.Error("duplicate Add() should return false")
	}
	if !r.Contains(dir) {
		t.Error("Contains() = false after Add()")
	}
	if len(r.Snapshot()) != 1 {
		t.Errorf("Snapshot() has %d roots, want 1", len(r.Snapshot()))
	}

	if !r.Remove(dir) {
		t.Error("Remove() should return true for a registered root")
	}
	if r.Remove(dir) {
		t.Error("Remove() of an absent root should return false")
	}
}

func TestRegistry_Canonicalizes(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "target")
	if err := os.Mkdir(target, 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	link := filepath.Join(base, "link")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	r := NewRegistry()
	r.Add(link)
	if r.Add(target) {
		t.Error("symlink and target should canonicalize to the same root")
	}
}

func TestRegistry_Match(t *testing.T) {
	roots := []string{
		filepath.FromSlash("/home/me/code"),
		filepath.FromSlash("/home/me/code/work"),
		filepath.FromSlash("/srv/app"),
	}

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"/home/me/code/tool/main.go", "/home/me/code", true},
		{"/home/me/code/work/api/x.go", "/home/me/code/work", true},
		{"/home/me/codebase/x.go", "", false},
		{"/srv/app/web/index.ts", "/srv/app", true},
		{"/etc/hosts", "", false},
	}

	for _, tt := range tests {
		got, ok := MatchRoot(roots, filepath.FromSlash(tt.path))
		if ok != tt.ok || got != filepath.FromSlash(tt.want) {
			t.Errorf("MatchRoot(%q) = (%q, %v), want (%q, %v)", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}
