package watcher

import (
	"sort"
	"sync"

	"github.com/timeforged/timeforged/internal/vcs"
	"github.com/timeforged/timeforged/internal/watchlist"
)

// Registry is the in-memory set of watched roots.
// Roots are stored canonicalized (absolute, symlinks resolved when possible).
type Registry struct {
	mu    sync.Mutex
	roots map[string]struct{}
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{roots: make(map[string]struct{})}
}

// Add records root and reports whether it was newly added.
func (r *Registry) Add(root string) bool {
	root = watchlist.Canonicalize(root)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.roots[root]; ok {
		return false
	}
	r.roots[root] = struct{}{}
	return true
}

// Remove drops root and reports whether it was present.
func (r *Registry) Remove(root string) bool {
	root = watchlist.Canonicalize(root)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.roots[root]; !ok {
		return false
	}
	delete(r.roots, root)
	return true
}

// Contains reports whether root is registered.
func (r *Registry) Contains(root string) bool {
	root = watchlist.Canonicalize(root)

	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.roots[root]
	return ok
}

// Snapshot returns a sorted copy of the registered roots.
func (r *Registry) Snapshot() []string {
	r.mu.Lock()
	roots := make([]string, 0, len(r.roots))
	for root := range r.roots {
		roots = append(roots, root)
	}
	r.mu.Unlock()

	sort.Strings(roots)
	return roots
}

// Match returns the root containing path, or false when none does.
// When roots are nested the deepest one wins, so the project is the first
// component under the closest root.
func (r *Registry) Match(path string) (string, bool) {
	return MatchRoot(r.Snapshot(), path)
}

// MatchRoot finds the deepest root in roots that contains path.
func MatchRoot(roots []string, path string) (string, bool) {
	best := ""
	for _, root := range roots {
		if vcs.IsSubPath(root, path) && len(root) > len(best) {
			best = root
		}
	}
	return best, best != ""
}
