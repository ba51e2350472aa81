package watcher

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/fsnotify/fsnotify"

	"github.com/timeforged/timeforged/internal/watchlist"
)

// CommandSender accepts watch commands. *Bridge implements it.
type CommandSender interface {
	Send(cmd Command) bool
}

// ReconcilerConfig configures a Reconciler.
type ReconcilerConfig struct {
	// ListPath is the watch list file.
	ListPath string

	Sender   CommandSender
	Registry *Registry
	Logger   *log.Logger
}

// Reconciler keeps the bridge's watches in line with the watch list file.
type Reconciler struct {
	cfg ReconcilerConfig
}

// NewReconciler creates a Reconciler.
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[watcher] ", log.LstdFlags)
	}
	return &Reconciler{cfg: cfg}
}

// Diff returns the roots to start and stop watching to go from current
// to listed. Both results are sorted.
func Diff(listed, current []string) (watch, unwatch []string) {
	want := make(map[string]bool, len(listed))
	for _, p := range listed {
		want[p] = true
	}
	have := make(map[string]bool, len(current))
	for _, p := range current {
		have[p] = true
	}

	for p := range want {
		if !have[p] {
			watch = append(watch, p)
		}
	}
	for p := range have {
		if !want[p] {
			unwatch = append(unwatch, p)
		}
	}
	sort.Strings(watch)
	sort.Strings(unwatch)
	return watch, unwatch
}

// Sync loads the watch list and sends the commands needed to match it.
func (r *Reconciler) Sync() error {
	list, err := watchlist.Load(r.cfg.ListPath)
	if err != nil {
		return err
	}

	watch, unwatch := Diff(list.Paths(), r.cfg.Registry.Snapshot())
	for _, p := range watch {
		r.cfg.Sender.Send(Command{Op: CommandWatch, Path: p})
	}
	for _, p := range unwatch {
		r.cfg.Sender.Send(Command{Op: CommandUnwatch, Path: p})
	}
	return nil
}

// Run performs an initial Sync and then re-syncs whenever the watch list
// file changes, until ctx is done.
//
// The containing directory is watched rather than the file, because saves
// replace the file by rename.
func (r *Reconciler) Run(ctx context.Context) error {
	if err := r.Sync(); err != nil {
		r.cfg.Logger.Printf("Warning: failed to load watch list: %v", err)
	}

	dir := filepath.Dir(r.cfg.ListPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	name := filepath.Base(r.cfg.ListPath)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name || event.Op == fsnotify.Chmod {
				continue
			}
			if err := r.Sync(); err != nil {
				r.cfg.Logger.Printf("Warning: failed to reload watch list: %v", err)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.cfg.Logger.Printf("Warning: watch list watcher error: %v", err)
		}
	}
}
