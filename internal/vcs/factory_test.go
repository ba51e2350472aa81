package vcs

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"testing"
)

type fakeRepo struct {
	kind Type
	root string
}

func (f *fakeRepo) Name() Type       { return f.kind }
func (f *fakeRepo) RepoRoot() string { return f.root }
func (f *fakeRepo) CurrentRef(context.Context) (string, error) {
	return string(f.kind) + "-ref", nil
}

// withBackends swaps in fake git and jj backends. installed lists the
// binaries lookPath finds.
func withBackends(t *testing.T, installed ...string) {
	t.Helper()

	registryMutex.Lock()
	saved := registry
	registry = make(map[Type]Constructor)
	registryMutex.Unlock()

	savedLook := lookPath
	lookPath = func(name string) (string, error) {
		for _, bin := range installed {
			if bin == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", exec.ErrNotFound
	}

	t.Cleanup(func() {
		registryMutex.Lock()
		registry = saved
		registryMutex.Unlock()
		lookPath = savedLook
	})

	for _, kind := range []Type{TypeGit, TypeJJ} {
		Register(kind, func(root string) (VCS, error) {
			return &fakeRepo{kind: kind, root: root}, nil
		})
	}
}

func TestGetForPath(t *testing.T) {
	base := t.TempDir()
	gitRoot := filepath.Join(base, "g")
	jjRoot := filepath.Join(base, "j")
	coRoot := filepath.Join(base, "c")
	mkRepo(t, gitRoot, ".git")
	mkRepo(t, jjRoot, ".jj")
	mkRepo(t, coRoot, ".jj", ".git")

	tests := []struct {
		name      string
		installed []string
		prefer    string
		path      string
		want      Type
		wantErr   error
	}{
		{"git repo", []string{"git", "jj"}, "", gitRoot, TypeGit, nil},
		{"jj repo", []string{"git", "jj"}, "", jjRoot, TypeJJ, nil},
		{"colocated prefers jj", []string{"git", "jj"}, "", coRoot, TypeJJ, nil},
		{"colocated honours TF_VCS", []string{"git", "jj"}, "git", coRoot, TypeGit, nil},
		{"colocated falls back to git", []string{"git"}, "", coRoot, TypeGit, nil},
		{"jj repo without jj", []string{"git"}, "", jjRoot, "", ErrVCSNotAvailable},
		{"nothing installed", nil, "", gitRoot, "", ErrVCSNotAvailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withBackends(t, tt.installed...)
			t.Setenv("TF_VCS", tt.prefer)

			v, err := GetForPath(tt.path)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("GetForPath() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetForPath() failed: %v", err)
			}
			if v.Name() != tt.want {
				t.Errorf("Name() = %s, want %s", v.Name(), tt.want)
			}
			if v.RepoRoot() != tt.path {
				t.Errorf("RepoRoot() = %s, want %s", v.RepoRoot(), tt.path)
			}
		})
	}
}

func TestCurrentRef_UsesRepoRoot(t *testing.T) {
	withBackends(t, "git", "jj")
	root := t.TempDir()
	mkRepo(t, root, ".jj")
	sub := filepath.Join(root, "src")
	mkRepo(t, sub, "pkg")

	ref, err := CurrentRef(context.Background(), filepath.Join(sub, "pkg"))
	if err != nil {
		t.Fatalf("CurrentRef() failed: %v", err)
	}
	if ref != "jj-ref" {
		t.Errorf("CurrentRef() = %q, want jj-ref", ref)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	withBackends(t)

	defer func() {
		if recover() == nil {
			t.Error("second Register() should panic")
		}
	}()
	Register(TypeGit, func(string) (VCS, error) { return nil, nil })
}
