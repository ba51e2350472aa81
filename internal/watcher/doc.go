// Package watcher turns file-system change notifications into enriched
// activity events.
//
// # Pipeline
//
// The capture Bridge owns a single fsnotify watcher on a goroutine pinned to
// an OS thread. It accepts Watch/Unwatch commands on a bounded channel and
// forwards Create/Write notifications as RawChange values on another bounded
// channel. Sends into either channel never block; overflow is dropped and
// counted.
//
// The Pipeline consumes raw changes in order:
//
//	RawChange -> Filter -> Debouncer -> Enricher -> EventSink
//
// Filter and Debouncer run on the pipeline goroutine. Enrichment, which may
// shell out to git, runs on a bounded worker group so a slow repository never
// stalls debouncing.
//
// # Shared state
//
// Registry, Debouncer and BranchCache are each guarded by their own mutex.
// No lock is held across an external call: the branch cache releases its
// lock while git runs, so concurrent misses for the same directory may both
// shell out. The last writer wins.
//
// # Window tracking
//
// WindowPoller optionally polls the active window title, extracts a file path
// from it, and records the path through the same Enricher when it lies under
// a watched root.
//
// # Watch list reconciliation
//
// Reconciler watches the persisted watch list file and issues Watch/Unwatch
// commands so that edits made by the CLI reach a running daemon.
//
// Example:
//
//	reg := watcher.NewRegistry()
//	bridge, err := watcher.NewBridge(watcher.BridgeConfig{Registry: reg})
//	if err != nil {
//	    return err
//	}
//	go bridge.Run(ctx)
//	bridge.Send(watcher.Command{Op: watcher.CommandWatch, Path: "/home/me/code"})
//
//	enricher := watcher.NewEnricher(watcher.EnricherConfig{
//	    Registry: reg,
//	    Branches: watcher.NewBranchCache(watcher.DefaultBranchTTL, nil),
//	    Sink:     db,
//	    UserID:   userID,
//	})
//	pipe := watcher.NewPipeline(watcher.PipelineConfig{
//	    Changes:   bridge.Changes(),
//	    Debouncer: watcher.NewDebouncer(30 * time.Second),
//	    Enricher:  enricher,
//	})
//	return pipe.Run(ctx)
package watcher
