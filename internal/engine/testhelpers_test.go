package engine

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rmansfield/mira/internal/event"
	"github.com/rmansfield/mira/internal/stats"
)

// writeFile creates path (and any missing parent directories) with content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// createTestTree populates root with a standard source tree:
//
//	docs/readme.txt   (10 bytes)
//	img/logo.png      (500 bytes)
//	notes.txt         (13 bytes)
//	empty/            (directory with no files)
func createTestTree(t *testing.T, root string) {
	t.Helper()
	writeFile(t, filepath.Join(root, "docs", "readme.txt"), "0123456789")
	writeFile(t, filepath.Join(root, "img", "logo.png"), string(make([]byte, 500)))
	writeFile(t, filepath.Join(root, "notes.txt"), "some notes\n..")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))
}

// verifyMirror checks that every regular file under srcRoot exists
// byte-identical at its mirrored path under replicaRoot.
func verifyMirror(t *testing.T, srcRoot, replicaRoot string) {
	t.Helper()
	err := filepath.WalkDir(srcRoot, func(path string, d os.DirEntry, err error) error {
		require.NoError(t, err)
		rel, err := filepath.Rel(srcRoot, path)
		require.NoError(t, err)
		mirrored := filepath.Join(replicaRoot, rel)

		if d.IsDir() {
			info, err := os.Stat(mirrored)
			require.NoError(t, err, "missing mirrored dir %s", rel)
			require.True(t, info.IsDir())
			return nil
		}

		srcData, err := os.ReadFile(path)
		require.NoError(t, err)
		dstData, err := os.ReadFile(mirrored)
		require.NoError(t, err, "missing mirrored file %s", rel)
		require.Equal(t, srcData, dstData, "content mismatch: %s", rel)
		return nil
	})
	require.NoError(t, err)
}

// matchMtime copies the modification time of src onto dst, so the
// metadata change check sees dst as unchanged.
func matchMtime(t *testing.T, src, dst string) {
	t.Helper()
	info, err := os.Stat(src)
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(dst, time.Now(), info.ModTime()))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPlanner(strict bool) *Planner {
	return &Planner{
		Detector: Detector{Strict: strict},
		Logger:   discardLogger(),
		Stats:    stats.NewCollector(),
	}
}

func newTestExecutor() *Executor {
	return &Executor{
		Logger: discardLogger(),
		Stats:  stats.NewCollector(),
	}
}

func newTestReconciler() *Reconciler {
	return &Reconciler{
		Logger: discardLogger(),
		Stats:  stats.NewCollector(),
	}
}

// collectEvents creates a buffered event channel that records all events.
// The getter closes the channel and waits for the drain goroutine before
// returning the slice.
func collectEvents(t *testing.T) (chan<- event.Event, func() []event.Event) {
	t.Helper()
	ch := make(chan event.Event, 4096)
	var collected []event.Event
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			collected = append(collected, ev)
		}
	}()
	return ch, func() []event.Event {
		close(ch)
		<-done
		return collected
	}
}
