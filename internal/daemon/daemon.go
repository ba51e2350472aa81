// Package daemon assembles the long-running TimeForged process.
//
// A Daemon owns the event store and runs, under one errgroup:
//
//   - the fsnotify bridge, which turns file writes into raw changes
//   - the pipeline, which filters, debounces and records them
//   - the reconciler, which applies edits to the watch list file
//   - the optional active-window poller
//   - the HTTP API and live feed
//
// Cancelling the context passed to Run stops everything; Run returns once
// in-flight events have been written.
package daemon

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/timeforged/timeforged/internal/activity"
	"github.com/timeforged/timeforged/internal/config"
	"github.com/timeforged/timeforged/internal/logging"
	"github.com/timeforged/timeforged/internal/metrics"
	"github.com/timeforged/timeforged/internal/report"
	"github.com/timeforged/timeforged/internal/server"
	"github.com/timeforged/timeforged/internal/store"
	"github.com/timeforged/timeforged/internal/watcher"
	"github.com/timeforged/timeforged/internal/watchlist"
)

// gaugeInterval is how often the watched-roots gauge is refreshed.
const gaugeInterval = 15 * time.Second

// Options configures a Daemon.
type Options struct {
	Config *config.Config

	// ListPath is the watch list file (default watched.toml in the config
	// directory).
	ListPath string

	// Sink receives all component logs. When nil one is opened on
	// Config.LogFile and closed with the daemon.
	Sink *logging.Sink
}

// Daemon is a configured, not yet running, TimeForged process.
type Daemon struct {
	cfg      *config.Config
	listPath string

	sink     *logging.Sink
	ownsSink bool
	logger   *log.Logger

	db   *store.DB
	user *store.User

	registry   *watcher.Registry
	bridge     *watcher.Bridge
	pipeline   *watcher.Pipeline
	reconciler *watcher.Reconciler
	poller     *watcher.WindowPoller
	server     *server.Server

	ready chan struct{}
}

// New opens the store and builds every component.
func New(opts Options) (*Daemon, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	d := &Daemon{
		cfg:      cfg,
		listPath: opts.ListPath,
		sink:     opts.Sink,
		ready:    make(chan struct{}),
	}
	if d.listPath == "" {
		d.listPath = watchlist.DefaultPath(config.ConfigDir())
	}
	if d.sink == nil {
		sink, err := logging.NewSink(logging.Options{File: cfg.LogFile})
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		d.sink = sink
		d.ownsSink = true
	}
	d.logger = d.sink.Logger("daemon")

	if err := d.openStore(); err != nil {
		d.closeSink()
		return nil, err
	}
	if err := d.build(); err != nil {
		d.db.Close()
		d.closeSink()
		return nil, err
	}
	return d, nil
}

func (d *Daemon) openStore() error {
	db, err := store.Open(d.cfg.DatabasePath)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.InitSchemaContext(ctx); err != nil {
		db.Close()
		return err
	}
	user, err := db.EnsureUser(ctx, d.cfg.Username)
	if err != nil {
		db.Close()
		return err
	}
	d.db = db
	d.user = user
	return nil
}

func (d *Daemon) build() error {
	watchLog := d.sink.Logger("watcher")
	filter := activity.NewFilter(d.cfg.Watcher.IgnorePatterns)
	if n := len(filter.Patterns()); n > 0 {
		watchLog.Printf("Ignoring %d extra patterns: %v", n, filter.Patterns())
	}

	d.registry = watcher.NewRegistry()

	bridge, err := watcher.NewBridge(watcher.BridgeConfig{
		Registry: d.registry,
		Filter:   filter,
		OnDrop:   metrics.Dropped.Inc,
		Logger:   watchLog,
	})
	if err != nil {
		return err
	}
	d.bridge = bridge

	control := &watchControl{
		path:     d.listPath,
		registry: d.registry,
		now:      time.Now,
		changed: func() {
			if err := d.reconciler.Sync(); err != nil {
				watchLog.Printf("Warning: failed to apply watch list: %v", err)
			}
		},
	}

	d.server = server.New(&server.Config{
		Addr:     d.cfg.Addr(),
		Store:    d.db,
		Reports:  report.NewService(d.db, d.cfg.IdleTimeoutDuration()),
		Watch:    control,
		Capture:  bridge,
		UserID:   d.user.ID,
		Username: d.user.Username,
		Machine:  watcher.MachineName(),
		Logger:   d.sink.Logger("server"),
	})

	branches := watcher.NewBranchCache(watcher.DefaultBranchTTL, nil)
	enricher := d.newEnricher(branches, "watcher", watchLog)

	debouncer := watcher.NewDebouncer(d.cfg.Watcher.DebounceWindow())
	watchLog.Printf("Debounce window %s per file", debouncer.Window())

	d.pipeline = watcher.NewPipeline(watcher.PipelineConfig{
		Changes:   bridge.Changes(),
		Filter:    filter,
		Registry:  d.registry,
		Debouncer: debouncer,
		Enricher:  enricher,
		OnOutcome: func(o watcher.Outcome) { metrics.ObserveChange(string(o)) },
		Logger:    watchLog,
	})

	d.reconciler = watcher.NewReconciler(watcher.ReconcilerConfig{
		ListPath: d.listPath,
		Sender:   bridge,
		Registry: d.registry,
		Logger:   watchLog,
	})

	if d.cfg.Watcher.EnableWindowTracker {
		windowLog := d.sink.Logger("window")
		d.poller = watcher.NewWindowPoller(watcher.WindowPollerConfig{
			Enricher: d.newEnricher(branches, "window", windowLog),
			Filter:   filter,
			Interval: d.cfg.Watcher.WindowPollInterval(),
			Logger:   windowLog,
		})
	}
	return nil
}

// newEnricher returns an enricher whose recorded events are counted under
// source and pushed to the live feed.
func (d *Daemon) newEnricher(branches *watcher.BranchCache, source string, logger *log.Logger) *watcher.Enricher {
	return watcher.NewEnricher(watcher.EnricherConfig{
		Registry: d.registry,
		Branches: branches,
		Sink:     d.db,
		UserID:   d.user.ID,
		OnRecorded: func(ev *activity.Event) {
			metrics.Events.WithLabelValues(source).Inc()
			d.server.PublishEvent(ev)
		},
		Logger: logger,
	})
}

// Run starts every component and blocks until ctx is cancelled or one of
// them fails.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.server.Start(); err != nil {
		return err
	}
	close(d.ready)
	d.logger.Printf("TimeForged daemon running as %s on %s", d.user.Username, d.server.GetAddr())
	d.logger.Printf("Database: %s", d.db.Path())

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return d.bridge.Run(ctx) })
	g.Go(func() error { return d.pipeline.Run(ctx) })
	g.Go(func() error { return d.reconciler.Run(ctx) })
	if d.poller != nil {
		g.Go(func() error { return d.poller.Run(ctx) })
	}
	g.Go(func() error {
		d.reportRoots(ctx)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return d.server.Stop()
	})

	err := g.Wait()
	d.logger.Println("TimeForged daemon stopped")
	return err
}

func (d *Daemon) reportRoots(ctx context.Context) {
	ticker := time.NewTicker(gaugeInterval)
	defer ticker.Stop()

	for {
		metrics.WatchedRoots.Set(float64(len(d.registry.Snapshot())))
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Ready is closed once the HTTP server is listening.
func (d *Daemon) Ready() <-chan struct{} {
	return d.ready
}

// Addr returns the address the server listens on.
func (d *Daemon) Addr() string {
	return d.server.GetAddr()
}

// User returns the local user events are recorded for.
func (d *Daemon) User() *store.User {
	return d.user
}

// Close releases the store and the log file. Call it after Run returns.
func (d *Daemon) Close() error {
	err := d.db.Close()
	d.closeSink()
	return err
}

func (d *Daemon) closeSink() {
	if d.ownsSink {
		_ = d.sink.Close()
	}
}
