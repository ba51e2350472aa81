package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/timeforged/timeforged/internal/vcs"
)

func TestBranchCache_HitWithinTTL(t *testing.T) {
	clock := newFakeClock()
	var calls atomic.Int32
	lookup := func(ctx context.Context, dir string) (string, error) {
		calls.Add(1)
		return "main", nil
	}
	c := NewBranchCache(60*time.Second, lookup).WithClock(clock.Now)

	for i := 0; i < 3; i++ {
		branch, ok := c.Branch(context.Background(), "/p/app")
		if !ok || branch != "main" {
			t.Fatalf("Branch() = (%q, %v), want (main, true)", branch, ok)
		}
		clock.Advance(10 * time.Second)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("lookup called %d times, want 1", n)
	}

	clock.Advance(60 * time.Second)
	c.Branch(context.Background(), "/p/app")
	if n := calls.Load(); n != 2 {
		t.Errorf("lookup called %d times after expiry, want 2", n)
	}
}

func TestBranchCache_CachesFailure(t *testing.T) {
	clock := newFakeClock()
	var calls atomic.Int32
	lookup := func(ctx context.Context, dir string) (string, error) {
		calls.Add(1)
		return "", errors.New("not a git repository")
	}
	c := NewBranchCache(time.Minute, lookup).WithClock(clock.Now)

	for i := 0; i < 2; i++ {
		if branch, ok := c.Branch(context.Background(), "/p/plain"); ok || branch != "" {
			t.Fatalf("Branch() = (%q, %v), want no branch", branch, ok)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("failed lookup repeated %d times, want 1", n)
	}
}

func TestBranchCache_PerDirectory(t *testing.T) {
	lookup := func(ctx context.Context, dir string) (string, error) {
		return "branch-of-" + dir, nil
	}
	c := NewBranchCache(time.Minute, lookup)

	a, _ := c.Branch(context.Background(), "a")
	b, _ := c.Branch(context.Background(), "b")
	if a != "branch-of-a" || b != "branch-of-b" {
		t.Errorf("got %q and %q", a, b)
	}
}

func TestBranchCache_RetriesMissingBinaryAfterTTL(t *testing.T) {
	clock := newFakeClock()
	var installed atomic.Bool
	var calls atomic.Int32
	lookup := func(ctx context.Context, dir string) (string, error) {
		calls.Add(1)
		if !installed.Load() {
			return "", fmt.Errorf("%w: git", vcs.ErrVCSNotAvailable)
		}
		return "main", nil
	}
	c := NewBranchCache(time.Minute, lookup).WithClock(clock.Now)

	if _, ok := c.Branch(context.Background(), "/p/a"); ok {
		t.Fatal("Branch() reported a branch without git")
	}
	c.Branch(context.Background(), "/p/a")
	if n := calls.Load(); n != 1 {
		t.Errorf("lookup called %d times within TTL, want 1", n)
	}

	installed.Store(true)
	clock.Advance(time.Minute)
	branch, ok := c.Branch(context.Background(), "/p/a")
	if !ok || branch != "main" {
		t.Errorf("Branch() after TTL = (%q, %v), want (main, true)", branch, ok)
	}
}
