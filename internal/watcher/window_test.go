package watcher

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestExtractFilePath(t *testing.T) {
	home := "/home/me"
	tests := []struct {
		name  string
		title string
		want  string
		ok    bool
	}{
		{"absolute with em dash", "/home/me/code/app/main.go — Visual Studio Code", "/home/me/code/app/main.go", true},
		{"absolute with en dash", "main.go –/srv/app/main.go", "/srv/app/main.go", true},
		{"absolute after words", "vim /srv/app/lib.rs", "/srv/app/lib.rs", true},
		{"first absolute wins", "/a/one.py /b/two.py", "/a/one.py", true},
		{"absolute without extension", "/usr/bin/zsh", "", false},
		{"tilde in parens", "main.py (~/code/app/main.py) - NVIM", "/home/me/code/app/main.py", true},
		{"tilde directory only", "main.py (~/code/app) - NVIM", "", false},
		{"dotfile has no extension", "/home/me/.bashrc", "", false},
		{"nothing", "Firefox", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractFilePath(tt.title, home)
			if ok != tt.ok || got != filepath.FromSlash(tt.want) {
				t.Errorf("ExtractFilePath(%q) = (%q, %v), want (%q, %v)", tt.title, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestExtractFilePath_NoHome(t *testing.T) {
	if _, ok := ExtractFilePath("(~/code/a.go)", ""); ok {
		t.Error("tilde paths need a home directory")
	}
}

func TestWindowPoller_Poll(t *testing.T) {
	reg := NewRegistry()
	reg.Add(filepath.FromSlash("/home/me/code"))
	sink := &memorySink{}

	title := "app.ts - /home/me/code/web/app.ts — Code"
	p := NewWindowPoller(WindowPollerConfig{
		Enricher: newTestEnricher(reg, sink, newFakeClock(), noBranch),
		Title: func(context.Context) (string, error) {
			return title, nil
		},
		Home:     "/home/me",
		Interval: time.Hour,
		Logger:   quietLogger(),
	})

	ev, ok := p.Poll(context.Background())
	if !ok {
		t.Fatal("Poll() should record a file under a watched root")
	}
	if ev.Project != "web" || ev.Language != "TypeScript" {
		t.Errorf("project/language = %q/%q, want web/TypeScript", ev.Project, ev.Language)
	}

	title = "notes.md - /tmp/notes.md — Code"
	if _, ok := p.Poll(context.Background()); ok {
		t.Error("Poll() should skip files outside watched roots")
	}

	// Not debounced: a repeated title records again.
	title = "app.ts - /home/me/code/web/app.ts — Code"
	if _, ok := p.Poll(context.Background()); !ok {
		t.Error("repeated sample should be recorded")
	}
	if n := len(sink.Events()); n != 2 {
		t.Errorf("sink has %d events, want 2", n)
	}
}

func TestWindowPoller_TitleFailure(t *testing.T) {
	p := NewWindowPoller(WindowPollerConfig{
		Enricher: newTestEnricher(NewRegistry(), &memorySink{}, newFakeClock(), noBranch),
		Title: func(context.Context) (string, error) {
			return "", errors.New("no display")
		},
		Logger: quietLogger(),
	})
	if _, ok := p.Poll(context.Background()); ok {
		t.Error("Poll() should skip when no title is available")
	}
}
