package watcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/timeforged/timeforged/internal/activity"
)

const (
	// DefaultWindowPollInterval is how often the active window is sampled.
	DefaultWindowPollInterval = 15 * time.Second

	windowCommandTimeout = 2 * time.Second
)

// ErrNoWindowTitle is returned when no window title source is available.
var ErrNoWindowTitle = errors.New("no active window title")

// TitleSource returns the title of the focused window.
type TitleSource func(ctx context.Context) (string, error)

// ActiveWindowTitle asks hyprctl for the focused window and falls back to
// xdotool when hyprctl is missing or fails.
func ActiveWindowTitle(ctx context.Context) (string, error) {
	if out, err := runWindowCommand(ctx, "hyprctl", "activewindow", "-j"); err == nil {
		if title := gjson.GetBytes(out, "title"); title.Exists() && title.String() != "" {
			return title.String(), nil
		}
	}

	out, err := runWindowCommand(ctx, "xdotool", "getactivewindow", "getwindowname")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoWindowTitle, err)
	}
	title := strings.TrimSpace(string(out))
	if title == "" {
		return "", ErrNoWindowTitle
	}
	return title, nil
}

func runWindowCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, windowCommandTimeout)
	defer cancel()
	return exec.CommandContext(ctx, name, args...).Output()
}

// ExtractFilePath pulls a file path out of an editor window title.
//
// Absolute paths are tried first: the title is split on whitespace and
// em/en dashes and the first token starting with "/" that has an extension
// wins. Otherwise the title is split on whitespace and parentheses and the
// first "~/" token with an extension is expanded against home.
//
// Example:
//
//	ExtractFilePath("main.go - /home/me/app/main.go — Code", "/home/me") // "/home/me/app/main.go", true
//	ExtractFilePath("main.go (~/app) - vim", "/home/me")                 // "", false
func ExtractFilePath(title, home string) (string, bool) {
	abs := strings.FieldsFunc(title, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '—' || r == '–'
	})
	for _, tok := range abs {
		if strings.HasPrefix(tok, "/") && hasExtension(tok) {
			return tok, true
		}
	}

	if home == "" {
		return "", false
	}
	rel := strings.FieldsFunc(title, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '(' || r == ')'
	})
	for _, tok := range rel {
		if strings.HasPrefix(tok, "~/") && hasExtension(tok) {
			return filepath.Join(home, tok[2:]), true
		}
	}
	return "", false
}

// hasExtension reports whether the last path element has a non-empty
// extension. A leading dot alone (".bashrc") does not count.
func hasExtension(path string) bool {
	base := strings.TrimPrefix(filepath.Base(path), ".")
	i := strings.LastIndex(base, ".")
	return i > 0 && i < len(base)-1
}

// WindowPollerConfig configures a WindowPoller.
type WindowPollerConfig struct {
	Enricher *Enricher
	Filter   *activity.Filter

	// Interval between samples (default 15s).
	Interval time.Duration

	// Title defaults to ActiveWindowTitle.
	Title TitleSource

	// Home expands "~/" paths; defaults to $HOME.
	Home string

	Logger *log.Logger
}

// WindowPoller periodically records the file shown in the focused window.
// Its samples are not debounced; the poll interval already bounds them.
type WindowPoller struct {
	cfg WindowPollerConfig
}

// NewWindowPoller creates a WindowPoller.
func NewWindowPoller(cfg WindowPollerConfig) *WindowPoller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultWindowPollInterval
	}
	if cfg.Title == nil {
		cfg.Title = ActiveWindowTitle
	}
	if cfg.Home == "" {
		cfg.Home = os.Getenv("HOME")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[window] ", log.LstdFlags)
	}
	return &WindowPoller{cfg: cfg}
}

// Run samples on every tick until ctx is done.
func (p *WindowPoller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.cfg.Logger.Printf("Polling active window every %s", p.cfg.Interval)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll takes one sample. Any failure skips the sample silently.
func (p *WindowPoller) Poll(ctx context.Context) (*activity.Event, bool) {
	title, err := p.cfg.Title(ctx)
	if err != nil {
		return nil, false
	}

	path, ok := ExtractFilePath(title, p.cfg.Home)
	if !ok {
		return nil, false
	}
	if p.cfg.Filter.Ignored("", path) {
		return nil, false
	}

	return p.cfg.Enricher.Record(ctx, RawChange{Path: path})
}
