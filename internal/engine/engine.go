// Package engine implements one-way directory synchronization: a single
// pass plans the difference between a source and a replica tree, copies
// changed files in parallel with post-copy digest verification, then
// removes replica entries with no source counterpart.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/rmansfield/mira/internal/event"
	"github.com/rmansfield/mira/internal/stats"
)

// Config describes one synchronization pass. Source and Replica must be
// absolute, existing, distinct directory paths; the caller validates
// them, not the engine.
type Config struct {
	Source  string
	Replica string

	// Strict supplements the metadata change check with content hashing
	// of every metadata-clean candidate.
	Strict bool

	// Workers bounds copy-phase parallelism. Clamped to
	// [1, runtime.NumCPU()]; 1 means sequential execution in planner
	// order.
	Workers int

	// Logger receives every outcome and removal. Workers share it, so it
	// must tolerate concurrent use (slog handlers do). Nil discards.
	Logger *slog.Logger

	// Stats is optional; a fresh collector is created when nil.
	Stats *stats.Collector

	// Events optionally receives progress events. Sends never block; a
	// full channel drops events rather than stalling a worker.
	Events chan<- event.Event
}

// Report is the full record of one pass: per-task outcomes in planner
// order, per-entry removals in bottom-up walk order, and the counter
// snapshot.
type Report struct {
	Outcomes []Outcome
	Removals []Removal
	Stats    stats.Snapshot
}

// Failed counts outcomes that exhausted their retry budget.
func (r Report) Failed() int {
	n := 0
	for _, out := range r.Outcomes {
		if out.Status == FailedAfterRetries {
			n++
		}
	}
	return n
}

// Run executes one pass: Plan, then Execute, then Reconcile, each phase a
// strict barrier over the previous. Reconcile runs after Execute so files
// just copied are never mistaken for stale entries. Individual task and
// removal failures degrade only their own result; the returned error is
// reserved for root-level failures that prevent a phase from running at
// all. Each pass is stateless: everything is recomputed from live
// filesystem metadata.
func Run(ctx context.Context, cfg Config) (Report, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Stats == nil {
		cfg.Stats = stats.NewCollector()
	}

	for _, root := range []string{cfg.Source, cfg.Replica} {
		info, err := os.Stat(root)
		if err != nil {
			return Report{}, fmt.Errorf("root inaccessible: %w", err)
		}
		if !info.IsDir() {
			return Report{}, fmt.Errorf("root %s is not a directory", root)
		}
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if limit := runtime.NumCPU(); workers > limit {
		workers = limit
	}

	emit(cfg.Events, event.Event{Type: event.PassStarted, Path: cfg.Source})
	cfg.Logger.Info("pass started",
		"source", cfg.Source, "replica", cfg.Replica,
		"strict", cfg.Strict, "workers", workers)

	planner := &Planner{
		Detector: Detector{Strict: cfg.Strict},
		Logger:   cfg.Logger,
		Stats:    cfg.Stats,
		Events:   cfg.Events,
	}
	tasks, err := planner.Plan(ctx, cfg.Source, cfg.Replica)
	if err != nil {
		return Report{}, fmt.Errorf("plan: %w", err)
	}
	emit(cfg.Events, event.Event{Type: event.PlanComplete, Size: int64(len(tasks))})
	cfg.Logger.Info("plan complete", "tasks", len(tasks))

	ex := &Executor{Logger: cfg.Logger, Stats: cfg.Stats, Events: cfg.Events}
	outcomes := runAll(ctx, ex, tasks, workers)

	rec := &Reconciler{Logger: cfg.Logger, Stats: cfg.Stats, Events: cfg.Events}
	removals, recErr := rec.Reconcile(ctx, cfg.Source, cfg.Replica)

	report := Report{
		Outcomes: outcomes,
		Removals: removals,
		Stats:    cfg.Stats.Snapshot(),
	}
	if recErr != nil {
		return report, fmt.Errorf("reconcile: %w", recErr)
	}

	emit(cfg.Events, event.Event{Type: event.PassComplete})
	cfg.Logger.Info("pass complete",
		"copied", report.Stats.FilesCopied,
		"failed", report.Stats.FilesFailed,
		"bytes", stats.FormatBytes(report.Stats.BytesCopied),
		"removed_files", report.Stats.FilesRemoved,
		"removed_dirs", report.Stats.DirsRemoved,
		"elapsed", report.Stats.Elapsed)
	return report, nil
}

// emit sends e without blocking; a nil or full channel drops the event.
func emit(ch chan<- event.Event, e event.Event) {
	if ch == nil {
		return
	}
	e.Timestamp = time.Now()
	select {
	case ch <- e:
	default:
	}
}
