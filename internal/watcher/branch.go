package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/timeforged/timeforged/internal/vcs"
	_ "github.com/timeforged/timeforged/internal/vcs/git"
	_ "github.com/timeforged/timeforged/internal/vcs/jj"
)

// DefaultBranchTTL is how long a branch lookup result is trusted.
const DefaultBranchTTL = 60 * time.Second

// BranchLookup resolves the branch checked out in dir.
// vcs.CurrentRef is the production implementation: it finds the enclosing
// git or jj repository and asks it for its branch or bookmark.
type BranchLookup func(ctx context.Context, dir string) (string, error)

type branchEntry struct {
	branch   string
	ok       bool
	cachedAt time.Time
}

// BranchCache memoizes branch lookups per directory for a TTL.
// Failed lookups are cached too, as a definite "no branch" until the TTL
// expires, so directories outside any repository are not re-probed on
// every change.
type BranchCache struct {
	ttl    time.Duration
	lookup BranchLookup
	clock  Clock

	mu      sync.Mutex
	entries map[string]branchEntry
}

// NewBranchCache creates a cache. A nil lookup uses vcs.CurrentRef.
func NewBranchCache(ttl time.Duration, lookup BranchLookup) *BranchCache {
	if ttl <= 0 {
		ttl = DefaultBranchTTL
	}
	if lookup == nil {
		lookup = vcs.CurrentRef
	}
	return &BranchCache{
		ttl:     ttl,
		lookup:  lookup,
		entries: make(map[string]branchEntry),
	}
}

// WithClock replaces the time source and returns c.
func (c *BranchCache) WithClock(clock Clock) *BranchCache {
	c.clock = clock
	return c
}

// Branch returns the branch for dir and whether one is known.
//
// A fresh entry is returned without calling the lookup. Otherwise the lock
// is released while the lookup runs and the result is stored when it
// returns. Concurrent misses for the same directory may each run a lookup.
func (c *BranchCache) Branch(ctx context.Context, dir string) (string, bool) {
	now := c.clock.now()

	c.mu.Lock()
	if e, found := c.entries[dir]; found && now.Sub(e.cachedAt) < c.ttl {
		c.mu.Unlock()
		return e.branch, e.ok
	}
	c.mu.Unlock()

	branch, err := c.lookup(ctx, dir)
	entry := branchEntry{cachedAt: c.clock.now()}
	if err == nil && branch != "" {
		entry.branch = branch
		entry.ok = true
	}

	c.mu.Lock()
	c.entries[dir] = entry
	c.mu.Unlock()

	return entry.branch, entry.ok
}
