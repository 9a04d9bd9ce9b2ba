package engine

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rmansfield/mira/internal/event"
	"github.com/rmansfield/mira/internal/stats"
)

// Planner walks the source tree, mirrors its directory structure into the
// replica, and produces the ordered list of copy tasks.
type Planner struct {
	Detector Detector
	Logger   *slog.Logger
	Stats    *stats.Collector
	Events   chan<- event.Event
}

// Plan traverses srcRoot depth-first in lexical order and returns one Task
// per file that needs copying, in traversal order. Its only side effect on
// the replica is directory creation; it never writes or deletes files.
// Destination paths are unique by construction (a single traversal visits
// each source path once). A failure to traverse srcRoot itself is fatal;
// per-entry errors are logged and the entry skipped.
func (p *Planner) Plan(ctx context.Context, srcRoot, replicaRoot string) ([]Task, error) {
	var tasks []Task

	err := filepath.WalkDir(srcRoot, func(path string, d fs.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if walkErr != nil {
			if path == srcRoot {
				return fmt.Errorf("walk source root %s: %w", srcRoot, walkErr)
			}
			p.Logger.Error("skipping unreadable source entry", "path", path, "error", walkErr)
			return nil
		}

		rel, err := filepath.Rel(srcRoot, path)
		if err != nil {
			return fmt.Errorf("rel path for %s: %w", path, err)
		}
		mirrored := filepath.Join(replicaRoot, rel)

		if d.IsDir() {
			if err := p.mirrorDir(mirrored); err != nil {
				if path == srcRoot {
					return err
				}
				// Every file task under this directory would fail the
				// same way; skip the subtree and surface the error once.
				p.Logger.Error("cannot mirror directory, skipping subtree", "path", mirrored, "error", err)
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			// Vanished mid-walk; surfaced here, nothing to queue.
			p.Logger.Error("stat source file", "path", path, "error", err)
			return nil
		}

		need, err := p.Detector.NeedsCopy(path, info, mirrored)
		if err != nil {
			p.Logger.Warn("strict digest check failed, queueing copy", "path", path, "error", err)
		}
		if need {
			tasks = append(tasks, Task{Src: path, Dst: mirrored})
			p.Stats.AddFilesPlanned(1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// mirrorDir creates the mirrored directory if absent. Creating an
// already-existing directory is a no-op, not an error, so concurrent or
// repeated passes are safe.
func (p *Planner) mirrorDir(path string) error {
	if _, err := os.Lstat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	p.Stats.AddDirsCreated(1)
	p.Logger.Info("directory created", "path", path)
	emit(p.Events, event.Event{Type: event.DirCreated, Path: path})
	return nil
}
