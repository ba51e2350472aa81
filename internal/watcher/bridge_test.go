package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// startBridge runs a bridge until the test ends.
func startBridge(t *testing.T, cfg BridgeConfig) *Bridge {
	t.Helper()

	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	cfg.Logger = quietLogger()
	b, err := NewBridge(cfg)
	if err != nil {
		t.Fatalf("NewBridge() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := b.Run(ctx); err != nil {
			t.Errorf("Run() failed: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return b
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

// expectChange waits for a change to path, skipping unrelated ones.
func expectChange(t *testing.T, b *Bridge, path string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case change := <-b.Changes():
			if change.Path == path {
				return
			}
		case <-timeout:
			t.Fatalf("timeout waiting for change to %s", path)
		}
	}
}

func TestBridge_WatchAndForward(t *testing.T) {
	reg := NewRegistry()
	b := startBridge(t, BridgeConfig{Registry: reg})

	root := t.TempDir()
	app := filepath.Join(root, "app")
	if err := os.Mkdir(app, 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	b.Send(Command{Op: CommandWatch, Path: root})
	waitFor(t, "root registration", func() bool { return reg.Contains(root) })

	canonicalApp := filepath.Join(reg.Snapshot()[0], "app")
	file := filepath.Join(canonicalApp, "main.go")
	if err := os.WriteFile(file, []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	expectChange(t, b, file)
}

func TestBridge_NewDirectoriesAreWatched(t *testing.T) {
	reg := NewRegistry()
	b := startBridge(t, BridgeConfig{Registry: reg})

	root := t.TempDir()
	b.Send(Command{Op: CommandWatch, Path: root})
	waitFor(t, "root registration", func() bool { return reg.Contains(root) })
	before := b.WatchedDirs()

	sub := filepath.Join(reg.Snapshot()[0], "newproj")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	waitFor(t, "new directory watch", func() bool { return b.WatchedDirs() > before })

	file := filepath.Join(sub, "lib.py")
	if err := os.WriteFile(file, []byte("x = 1\n"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	expectChange(t, b, file)
}

func TestBridge_SkipsIgnoredDirectories(t *testing.T) {
	reg := NewRegistry()
	b := startBridge(t, BridgeConfig{Registry: reg})

	root := t.TempDir()
	for _, dir := range []string{"app/src", "app/node_modules/pkg", "app/.git/objects"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}

	b.Send(Command{Op: CommandWatch, Path: root})
	waitFor(t, "root registration", func() bool { return reg.Contains(root) })

	// root, app, app/src
	if got := b.WatchedDirs(); got != 3 {
		t.Errorf("WatchedDirs() = %d, want 3", got)
	}
}

func TestBridge_WatchMissingIsNoop(t *testing.T) {
	reg := NewRegistry()
	b := startBridge(t, BridgeConfig{Registry: reg})

	missing := filepath.Join(t.TempDir(), "gone")
	b.Send(Command{Op: CommandWatch, Path: missing})

	// Follow with a valid command so we know the first was processed.
	root := t.TempDir()
	b.Send(Command{Op: CommandWatch, Path: root})
	waitFor(t, "root registration", func() bool { return reg.Contains(root) })

	if reg.Contains(missing) {
		t.Error("missing directory should not be registered")
	}
}

func TestBridge_Unwatch(t *testing.T) {
	reg := NewRegistry()
	b := startBridge(t, BridgeConfig{Registry: reg})

	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "app"), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	b.Send(Command{Op: CommandWatch, Path: root})
	waitFor(t, "root registration", func() bool { return reg.Contains(root) })

	b.Send(Command{Op: CommandUnwatch, Path: root})
	waitFor(t, "root removal", func() bool { return !reg.Contains(root) })
	waitFor(t, "directories released", func() bool { return b.WatchedDirs() == 0 })
}

func TestBridge_UnwatchKeepsNestedRoots(t *testing.T) {
	reg := NewRegistry()
	b := startBridge(t, BridgeConfig{Registry: reg})

	outer := t.TempDir()
	inner := filepath.Join(outer, "inner")
	if err := os.MkdirAll(filepath.Join(inner, "app"), 0o755); err != nil {
		t.Fatalf("failed to create dirs: %v", err)
	}

	b.Send(Command{Op: CommandWatch, Path: outer})
	b.Send(Command{Op: CommandWatch, Path: inner})
	waitFor(t, "both roots", func() bool { return reg.Contains(outer) && reg.Contains(inner) })

	b.Send(Command{Op: CommandUnwatch, Path: outer})
	waitFor(t, "outer removal", func() bool { return !reg.Contains(outer) })

	// inner and inner/app remain.
	waitFor(t, "inner still watched", func() bool { return b.WatchedDirs() == 2 })
}

func TestBridge_DropsOnOverflow(t *testing.T) {
	var drops int
	b, err := NewBridge(BridgeConfig{
		Registry:     NewRegistry(),
		ChangeBuffer: 1,
		OnDrop:       func() { drops++ },
		Logger:       quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewBridge() failed: %v", err)
	}

	b.forward("/p/a.go")
	b.forward("/p/b.go")
	b.forward("/p/c.go")

	if got := b.Dropped(); got != 2 {
		t.Errorf("Dropped() = %d, want 2", got)
	}
	if drops != 2 {
		t.Errorf("OnDrop called %d times, want 2", drops)
	}
	if change := <-b.Changes(); change.Path != "/p/a.go" {
		t.Errorf("first change = %q, want /p/a.go", change.Path)
	}
}

func TestBridge_SendNeverBlocks(t *testing.T) {
	b, err := NewBridge(BridgeConfig{
		Registry:      NewRegistry(),
		CommandBuffer: 1,
		Logger:        quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewBridge() failed: %v", err)
	}

	if !b.Send(Command{Op: CommandWatch, Path: "/a"}) {
		t.Error("first Send() should be accepted")
	}
	if b.Send(Command{Op: CommandWatch, Path: "/b"}) {
		t.Error("Send() on a full queue should be refused")
	}
}
