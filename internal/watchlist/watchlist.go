// Package watchlist persists the set of watched directories.
//
// The list is a TOML file, by default watched.toml in the config directory:
//
//	[[dirs]]
//	path = "/home/me/code"
//	added_at = 2024-05-01T09:30:00Z
//
// The CLI edits this file; a running daemon notices the change and
// reconciles its watches against it.
package watchlist

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the watch list's file name inside the config directory.
const FileName = "watched.toml"

var (
	// ErrNotWatched is returned when removing a path that is not listed.
	ErrNotWatched = errors.New("directory is not watched")

	// ErrNotDirectory is returned when adding a path that is not a directory.
	ErrNotDirectory = errors.New("not a directory")
)

// Entry is one watched root.
type Entry struct {
	Path    string    `toml:"path" json:"path" yaml:"path"`
	AddedAt time.Time `toml:"added_at" json:"added_at" yaml:"added_at"`
}

// List is the persisted set of watched roots.
type List struct {
	Dirs []Entry `toml:"dirs" json:"dirs" yaml:"dirs"`
}

// DefaultPath returns the watch list location inside configDir.
func DefaultPath(configDir string) string {
	return filepath.Join(configDir, FileName)
}

// Canonicalize returns the absolute, symlink-resolved form of path.
// If symlinks cannot be resolved (the path may not exist) the cleaned
// absolute path is returned.
func Canonicalize(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// Load reads the list at path. A missing file yields an empty list.
func Load(path string) (*List, error) {
	l := &List{}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if _, err := toml.DecodeFile(path, l); err != nil {
		return nil, fmt.Errorf("failed to parse watch list %s: %w", path, err)
	}
	return l, nil
}

// Save writes the list to path atomically via a temp file and rename.
func (l *List) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(l); err != nil {
		return fmt.Errorf("failed to encode watch list: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Add canonicalizes dir and appends it. It returns the canonical path and
// whether it was newly added; adding a listed directory is not an error.
func (l *List) Add(dir string, now time.Time) (string, bool, error) {
	canonical := Canonicalize(dir)

	info, err := os.Stat(canonical)
	if err != nil {
		return "", false, fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return "", false, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	if l.Contains(canonical) {
		return canonical, false, nil
	}
	l.Dirs = append(l.Dirs, Entry{Path: canonical, AddedAt: now.UTC().Truncate(time.Second)})
	return canonical, true, nil
}

// Remove drops dir. The directory need not exist anymore.
func (l *List) Remove(dir string) (string, error) {
	canonical := Canonicalize(dir)
	for i, e := range l.Dirs {
		if e.Path == canonical || e.Path == dir {
			l.Dirs = append(l.Dirs[:i], l.Dirs[i+1:]...)
			return e.Path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotWatched, dir)
}

// Contains reports whether the canonical form of dir is listed.
func (l *List) Contains(dir string) bool {
	canonical := Canonicalize(dir)
	for _, e := range l.Dirs {
		if e.Path == canonical {
			return true
		}
	}
	return false
}

// Paths returns the listed paths in sorted order.
func (l *List) Paths() []string {
	paths := make([]string, 0, len(l.Dirs))
	for _, e := range l.Dirs {
		paths = append(paths, e.Path)
	}
	sort.Strings(paths)
	return paths
}
