package watcher

import (
	"context"
	"log"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/timeforged/timeforged/internal/activity"
)

const (
	// DefaultEnrichWorkers bounds concurrent enrichment.
	DefaultEnrichWorkers = 4

	// DefaultCleanupInterval is how often stale debounce entries are evicted.
	DefaultCleanupInterval = 5 * time.Minute
)

// Outcome names what happened to a raw change.
type Outcome string

const (
	OutcomeFiltered  Outcome = "filtered"
	OutcomeDebounced Outcome = "debounced"
	OutcomeDiscarded Outcome = "discarded"
	OutcomeRecorded  Outcome = "recorded"
)

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	Changes   <-chan RawChange
	Filter    *activity.Filter
	Registry  *Registry
	Debouncer *Debouncer
	Enricher  *Enricher

	// Workers bounds concurrent enrichment (default 4).
	Workers int

	// CleanupInterval is the debounce eviction period (default 5m).
	CleanupInterval time.Duration

	// OnOutcome is called once per raw change. It may be called from
	// several goroutines.
	OnOutcome func(Outcome)

	Logger *log.Logger
}

// Pipeline filters, debounces and enriches raw changes.
type Pipeline struct {
	cfg PipelineConfig
}

// NewPipeline creates a Pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultEnrichWorkers
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.Debouncer == nil {
		cfg.Debouncer = NewDebouncer(DefaultDebounceWindow)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[watcher] ", log.LstdFlags)
	}
	return &Pipeline{cfg: cfg}
}

// Run consumes changes until the channel is closed or ctx is done, then
// waits for in-flight enrichment to finish.
//
// When all workers are busy the loop blocks, which lets the bounded
// change channel absorb the burst and then shed load at the bridge.
func (p *Pipeline) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	ticker := time.NewTicker(p.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return g.Wait()

		case <-ticker.C:
			if n := p.cfg.Debouncer.Cleanup(); n > 0 {
				p.cfg.Logger.Printf("Evicted %d idle debounce entries", n)
			}

		case change, ok := <-p.cfg.Changes:
			if !ok {
				return g.Wait()
			}
			if !p.admit(change) {
				continue
			}
			g.Go(func() error {
				if _, ok := p.cfg.Enricher.Record(gctx, change); ok {
					p.observe(OutcomeRecorded)
				} else {
					p.observe(OutcomeDiscarded)
				}
				return nil
			})
		}
	}
}

// admit applies the filter and debouncer in that order.
func (p *Pipeline) admit(change RawChange) bool {
	root := ""
	if p.cfg.Registry != nil {
		root, _ = p.cfg.Registry.Match(change.Path)
	}
	if p.cfg.Filter.Ignored(root, change.Path) {
		p.observe(OutcomeFiltered)
		return false
	}
	if !p.cfg.Debouncer.ShouldEmit(change.Path) {
		p.observe(OutcomeDebounced)
		return false
	}
	return true
}

func (p *Pipeline) observe(o Outcome) {
	if p.cfg.OnOutcome != nil {
		p.cfg.OnOutcome(o)
	}
}
