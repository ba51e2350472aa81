package vcs

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func TestIsSubPath(t *testing.T) {
	base := filepath.FromSlash("/home/me/code")
	tests := []struct {
		target string
		want   bool
	}{
		{"/home/me/code", true},
		{"/home/me/code/app/main.go", true},
		{"/home/me/codebase/x.go", false},
		{"/home/me/..code/x.go", false},
		{"/home/me", false},
		{"/etc/passwd", false},
	}

	for _, tt := range tests {
		if got := IsSubPath(base, filepath.FromSlash(tt.target)); got != tt.want {
			t.Errorf("IsSubPath(%q, %q) = %v, want %v", base, tt.target, got, tt.want)
		}
	}
}

func TestExecContext_MissingBinary(t *testing.T) {
	_, err := ExecContext(context.Background(), time.Second, t.TempDir(), "timeforged-no-such-binary")
	if !errors.Is(err, ErrVCSNotAvailable) {
		t.Fatalf("expected ErrVCSNotAvailable, got %v", err)
	}
}

func TestExecContext_Output(t *testing.T) {
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not available")
	}

	out, err := ExecContext(context.Background(), 5*time.Second, t.TempDir(), "echo", "hello")
	if err != nil {
		t.Fatalf("ExecContext() failed: %v", err)
	}
	if got := TrimOutput(out); got != "hello" {
		t.Errorf("TrimOutput() = %q, want %q", got, "hello")
	}
}
