package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/timeforged/timeforged/internal/activity"
	"github.com/timeforged/timeforged/internal/vcs"
	"github.com/timeforged/timeforged/internal/watchlist"
)

const (
	// DefaultChangeBuffer is the capacity of the raw-change channel.
	DefaultChangeBuffer = 1024

	// DefaultCommandBuffer is the capacity of the command channel.
	DefaultCommandBuffer = 64
)

// CommandOp selects what a Command does.
type CommandOp int

const (
	// CommandWatch starts watching a root recursively.
	CommandWatch CommandOp = iota
	// CommandUnwatch stops watching a root.
	CommandUnwatch
)

// String returns a human-readable representation of the operation.
func (op CommandOp) String() string {
	switch op {
	case CommandWatch:
		return "watch"
	case CommandUnwatch:
		return "unwatch"
	default:
		return "unknown"
	}
}

// Command asks the bridge to start or stop watching a root.
type Command struct {
	Op   CommandOp
	Path string
}

// RawChange is a single create or modify notification for a file.
type RawChange struct {
	Path       string
	DetectedAt time.Time
}

// BridgeConfig configures a Bridge.
type BridgeConfig struct {
	// Registry receives roots as they are watched and unwatched. Required.
	Registry *Registry

	// Filter prunes directories during recursive registration. Optional.
	Filter *activity.Filter

	// ChangeBuffer is the raw-change channel capacity (default 1024).
	ChangeBuffer int

	// CommandBuffer is the command channel capacity (default 64).
	CommandBuffer int

	// OnDrop is called each time a raw change is dropped on overflow.
	OnDrop func()

	Clock  Clock
	Logger *log.Logger
}

// Bridge owns the fsnotify watcher. All watcher operations happen on the
// goroutine running Run, which is locked to its OS thread.
type Bridge struct {
	registry *Registry
	filter   *activity.Filter
	onDrop   func()
	clock    Clock
	logger   *log.Logger

	commands chan Command
	changes  chan RawChange

	// dirs is only touched by the Run goroutine.
	dirs map[string]struct{}

	dropped     atomic.Uint64
	watchedDirs atomic.Int64
}

// NewBridge creates a Bridge. Commands may be sent before Run starts;
// they are processed once it does.
func NewBridge(cfg BridgeConfig) (*Bridge, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("bridge requires a registry")
	}
	if cfg.ChangeBuffer <= 0 {
		cfg.ChangeBuffer = DefaultChangeBuffer
	}
	if cfg.CommandBuffer <= 0 {
		cfg.CommandBuffer = DefaultCommandBuffer
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[watcher] ", log.LstdFlags)
	}

	return &Bridge{
		registry: cfg.Registry,
		filter:   cfg.Filter,
		onDrop:   cfg.OnDrop,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		commands: make(chan Command, cfg.CommandBuffer),
		changes:  make(chan RawChange, cfg.ChangeBuffer),
		dirs:     make(map[string]struct{}),
	}, nil
}

// Changes returns the raw-change channel. It is closed when Run returns.
func (b *Bridge) Changes() <-chan RawChange {
	return b.changes
}

// Send enqueues a command without blocking. It returns false and logs a
// warning when the command channel is full.
func (b *Bridge) Send(cmd Command) bool {
	select {
	case b.commands <- cmd:
		return true
	default:
		b.logger.Printf("Warning: command queue full, dropping %s %s", cmd.Op, cmd.Path)
		return false
	}
}

// Dropped returns how many raw changes were dropped on overflow.
func (b *Bridge) Dropped() uint64 {
	return b.dropped.Load()
}

// WatchedDirs returns how many directories are currently registered with
// the OS watcher.
func (b *Bridge) WatchedDirs() int {
	return int(b.watchedDirs.Load())
}

// Run processes commands and file-system notifications until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(b.changes)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case cmd := <-b.commands:
			switch cmd.Op {
			case CommandWatch:
				b.watch(w, cmd.Path)
			case CommandUnwatch:
				b.unwatch(w, cmd.Path)
			}

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			b.handleEvent(w, event)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			b.logger.Printf("Warning: watcher error: %v", err)
		}
	}
}

func (b *Bridge) watch(w *fsnotify.Watcher, path string) {
	root := watchlist.Canonicalize(path)

	info, err := os.Stat(root)
	if err != nil {
		b.logger.Printf("Warning: cannot watch %s: %v", root, err)
		return
	}
	if !info.IsDir() {
		b.logger.Printf("Warning: cannot watch %s: not a directory", root)
		return
	}

	added := b.addTree(w, root, root)
	b.registry.Add(root)
	b.logger.Printf("Watching %s (%d directories)", root, added)
}

// addTree registers dir and every non-ignored directory below it.
func (b *Bridge) addTree(w *fsnotify.Watcher, root, dir string) int {
	added := 0
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped; the rest is still watched.
			if d != nil && d.IsDir() && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (activity.IsIgnoredDir(d.Name()) || b.filter.Ignored(root, path)) {
			return filepath.SkipDir
		}
		if _, ok := b.dirs[path]; ok {
			return nil
		}
		if err := w.Add(path); err != nil {
			b.logger.Printf("Warning: failed to watch %s: %v", path, err)
			return nil
		}
		b.dirs[path] = struct{}{}
		added++
		return nil
	})
	if walkErr != nil {
		b.logger.Printf("Warning: failed to walk %s: %v", dir, walkErr)
	}
	b.watchedDirs.Store(int64(len(b.dirs)))
	return added
}

func (b *Bridge) unwatch(w *fsnotify.Watcher, path string) {
	root := watchlist.Canonicalize(path)
	if !b.registry.Remove(root) {
		b.logger.Printf("Warning: %s is not watched", root)
	}

	// Directories that also fall under another root stay registered.
	remaining := b.registry.Snapshot()
	removed := 0
	for dir := range b.dirs {
		if !vcs.IsSubPath(root, dir) {
			continue
		}
		if _, covered := MatchRoot(remaining, dir); covered {
			continue
		}
		// Already-removed directories return an error we do not care about.
		_ = w.Remove(dir)
		delete(b.dirs, dir)
		removed++
	}
	b.watchedDirs.Store(int64(len(b.dirs)))
	b.logger.Printf("Stopped watching %s (%d directories)", root, removed)
}

func (b *Bridge) handleEvent(w *fsnotify.Watcher, event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Stat(event.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			if root, ok := b.registry.Match(event.Name); ok && !activity.IsIgnoredDir(filepath.Base(event.Name)) {
				b.addTree(w, root, event.Name)
			}
			return
		}
		b.forward(event.Name)

	case event.Has(fsnotify.Write):
		b.forward(event.Name)

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if _, ok := b.dirs[event.Name]; ok {
			delete(b.dirs, event.Name)
			b.watchedDirs.Store(int64(len(b.dirs)))
		}
	}
}

// forward enqueues a raw change, dropping it when the channel is full.
func (b *Bridge) forward(path string) {
	change := RawChange{Path: path, DetectedAt: b.clock.now()}
	select {
	case b.changes <- change:
	default:
		b.dropped.Add(1)
		if b.onDrop != nil {
			b.onDrop()
		}
	}
}
