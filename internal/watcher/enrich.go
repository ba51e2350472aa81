package watcher

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/timeforged/timeforged/internal/activity"
)

// EventSink appends events to the durable log.
type EventSink interface {
	InsertEvent(ctx context.Context, ev *activity.Event) (int64, error)
}

// EnricherConfig configures an Enricher.
type EnricherConfig struct {
	Registry *Registry
	Branches *BranchCache
	Sink     EventSink
	UserID   uuid.UUID

	// Machine overrides the detected host name.
	Machine string

	// OnRecorded is called after an event is stored.
	OnRecorded func(*activity.Event)

	Clock  Clock
	Logger *log.Logger
}

// Enricher resolves project, language and branch for a change and records
// the resulting event.
type Enricher struct {
	registry   *Registry
	branches   *BranchCache
	sink       EventSink
	userID     uuid.UUID
	machine    string
	onRecorded func(*activity.Event)
	clock      Clock
	logger     *log.Logger
}

// NewEnricher creates an Enricher. The machine name is resolved once here.
func NewEnricher(cfg EnricherConfig) *Enricher {
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[watcher] ", log.LstdFlags)
	}
	if cfg.Branches == nil {
		cfg.Branches = NewBranchCache(DefaultBranchTTL, nil)
	}
	if cfg.Machine == "" {
		cfg.Machine = MachineName()
	}
	return &Enricher{
		registry:   cfg.Registry,
		branches:   cfg.Branches,
		sink:       cfg.Sink,
		userID:     cfg.UserID,
		machine:    cfg.Machine,
		onRecorded: cfg.OnRecorded,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
	}
}

// Enrich builds an event for change. It returns false when the path is no
// longer under a watched root (the root may have been removed after the
// change was queued) or when no project can be derived from it.
func (e *Enricher) Enrich(ctx context.Context, change RawChange) (*activity.Event, bool) {
	root, ok := e.registry.Match(change.Path)
	if !ok {
		return nil, false
	}

	project, ok := activity.ProjectUnderRoot(root, change.Path)
	if !ok {
		return nil, false
	}

	ev := &activity.Event{
		UserID:    e.userID,
		Timestamp: e.clock.now().UTC(),
		Type:      activity.EventTypeFile,
		Entity:    change.Path,
		Project:   project,
		Activity:  activity.KindCoding,
		Machine:   e.machine,
	}
	if lang, ok := activity.LanguageFor(change.Path); ok {
		ev.Language = lang
	}

	repoDir := filepath.Join(root, project)
	if repoDir == change.Path {
		repoDir = root
	}
	if branch, ok := e.branches.Branch(ctx, repoDir); ok {
		ev.Branch = branch
	}

	return ev, true
}

// Record enriches change and appends it to the sink. Storage failures are
// logged and the event is dropped.
func (e *Enricher) Record(ctx context.Context, change RawChange) (*activity.Event, bool) {
	ev, ok := e.Enrich(ctx, change)
	if !ok {
		return nil, false
	}

	id, err := e.sink.InsertEvent(ctx, ev)
	if err != nil {
		e.logger.Printf("Warning: failed to record event for %s: %v", ev.Entity, err)
		return nil, false
	}
	ev.ID = id

	if e.onRecorded != nil {
		e.onRecorded(ev)
	}
	return ev, true
}
