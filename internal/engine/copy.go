package engine

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/rmansfield/mira/internal/event"
	"github.com/rmansfield/mira/internal/stats"
)

// maxRetries is the number of re-attempts after the initial try. A task is
// tried at most 1+maxRetries times in total.
const maxRetries = 3

// copyBufPool recycles copy buffers across tasks. Each Execute call owns
// its buffer for the duration of one copy and returns it on completion.
var copyBufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 32*1024)
		return &b
	},
}

// Executor carries out one copy task: copy bytes and mtime, verify both
// sides by digest, retry on copy error or mismatch.
type Executor struct {
	Logger *slog.Logger
	Stats  *stats.Collector
	Events chan<- event.Event
}

// Execute runs the task to completion and reports its Outcome. Every
// attempt is a full, independent re-copy; no partial byte ranges survive
// between attempts. A task that exhausts its attempts reports
// FailedAfterRetries carrying the last observed error, never a silent
// success over a corrupted replica.
func (e *Executor) Execute(t Task) Outcome {
	out := Outcome{Task: t}

	for attempt := 1; attempt <= 1+maxRetries; attempt++ {
		out.Attempts = attempt
		if attempt > 1 {
			e.Stats.AddRetries(1)
		}

		n, err := copyFile(t.Src, t.Dst)
		if err != nil {
			out.Err = err
			e.Logger.Error("copy attempt failed",
				"src", t.Src, "dst", t.Dst, "attempt", attempt, "error", err)
			continue
		}

		srcSum, err := Digest(t.Src)
		if err != nil {
			out.Err = err
			e.Logger.Error("digest source failed",
				"src", t.Src, "attempt", attempt, "error", err)
			continue
		}
		dstSum, err := Digest(t.Dst)
		if err != nil {
			out.Err = err
			e.Logger.Error("digest replica failed",
				"dst", t.Dst, "attempt", attempt, "error", err)
			continue
		}

		if srcSum != dstSum {
			out.Err = &IntegrityError{Src: t.Src, Dst: t.Dst, SrcDigest: srcSum, DstDigest: dstSum}
			e.Logger.Error("digest mismatch, retrying",
				"src", t.Src, "dst", t.Dst, "attempt", attempt)
			continue
		}

		out.Status = Succeeded
		out.Err = nil
		out.Bytes = n
		e.Stats.AddFilesCopied(1)
		e.Stats.AddBytesCopied(n)
		e.Logger.Info("file copied", "src", t.Src, "dst", t.Dst, "bytes", n, "attempts", attempt)
		emit(e.Events, event.Event{Type: event.FileCopied, Path: t.Dst, Size: n, Attempts: attempt})
		return out
	}

	out.Status = FailedAfterRetries
	e.Stats.AddFilesFailed(1)
	e.Logger.Error("copy failed after retries",
		"src", t.Src, "dst", t.Dst, "attempts", out.Attempts, "error", out.Err)
	emit(e.Events, event.Event{Type: event.FileFailed, Path: t.Dst, Attempts: out.Attempts, Error: out.Err})
	return out
}

// copyFile copies src's bytes onto dst, overwriting if present, and carries
// the source's permission bits and modification time so the next pass's
// metadata check sees the replica as unchanged.
func copyFile(src, dst string) (int64, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", src, err)
	}

	sf, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", src, err)
	}
	defer sf.Close()

	df, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dst, err)
	}

	bufp := copyBufPool.Get().(*[]byte)
	n, err := io.CopyBuffer(df, sf, *bufp)
	copyBufPool.Put(bufp)
	if err != nil {
		df.Close()
		return n, fmt.Errorf("copy %s -> %s: %w", src, dst, err)
	}
	if err := df.Close(); err != nil {
		return n, fmt.Errorf("close %s: %w", dst, err)
	}

	if err := os.Chtimes(dst, time.Now(), info.ModTime()); err != nil {
		return n, fmt.Errorf("set mtime %s: %w", dst, err)
	}
	return n, nil
}
