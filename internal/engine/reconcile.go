package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rmansfield/mira/internal/event"
	"github.com/rmansfield/mira/internal/stats"
)

// Reconciler removes replica entries that have no corresponding source
// entry.
type Reconciler struct {
	Logger *slog.Logger
	Stats  *stats.Collector
	Events chan<- event.Event
}

// Reconcile walks the replica tree bottom-up and deletes every file and
// directory absent from srcRoot, returning one Removal per deleted (or
// undeletable) entry. Children are fully handled before their parent is
// examined, so a stale directory is only removed once its own stale
// content is gone. Per-entry deletion errors are recorded and do not abort
// the walk; only an unreadable replica root is fatal.
func (r *Reconciler) Reconcile(ctx context.Context, srcRoot, replicaRoot string) ([]Removal, error) {
	var removals []Removal
	err := r.walk(ctx, srcRoot, replicaRoot, replicaRoot, &removals)
	return removals, err
}

func (r *Reconciler) walk(ctx context.Context, srcRoot, replicaRoot, dir string, removals *[]Removal) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if dir == replicaRoot {
			return fmt.Errorf("walk replica root %s: %w", replicaRoot, err)
		}
		r.Logger.Error("skipping unreadable replica directory", "path", dir, "error", err)
		return nil
	}

	for _, ent := range entries {
		replicaPath := filepath.Join(dir, ent.Name())
		rel, err := filepath.Rel(replicaRoot, replicaPath)
		if err != nil {
			return fmt.Errorf("rel path for %s: %w", replicaPath, err)
		}
		srcPath := filepath.Join(srcRoot, rel)

		if ent.IsDir() {
			// Descend first: stale files inside a stale directory are
			// removed (and recorded) individually before the directory
			// itself goes.
			if err := r.walk(ctx, srcRoot, replicaRoot, replicaPath, removals); err != nil {
				return err
			}
			if !sourceExists(srcPath) {
				r.record(removals, Removal{Path: replicaPath, Dir: true, Err: os.RemoveAll(replicaPath)})
			}
			continue
		}

		if !sourceExists(srcPath) {
			r.record(removals, Removal{Path: replicaPath, Err: os.Remove(replicaPath)})
		}
	}
	return nil
}

func (r *Reconciler) record(removals *[]Removal, rem Removal) {
	*removals = append(*removals, rem)

	if rem.Err != nil {
		r.Logger.Error("removal failed", "path", rem.Path, "dir", rem.Dir, "error", rem.Err)
		emit(r.Events, event.Event{Type: event.RemoveFailed, Path: rem.Path, Error: rem.Err})
		return
	}
	if rem.Dir {
		r.Stats.AddDirsRemoved(1)
		r.Logger.Info("directory removed", "path", rem.Path)
		emit(r.Events, event.Event{Type: event.DirRemoved, Path: rem.Path})
		return
	}
	r.Stats.AddFilesRemoved(1)
	r.Logger.Info("file removed", "path", rem.Path)
	emit(r.Events, event.Event{Type: event.FileRemoved, Path: rem.Path})
}

func sourceExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
