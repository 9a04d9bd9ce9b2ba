// Package stats tracks per-pass synchronization counters.
package stats

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Collector tracks synchronization statistics using lock-free atomic
// counters. Safe for concurrent use by copy workers.
type Collector struct {
	filesPlanned atomic.Int64
	filesCopied  atomic.Int64
	filesFailed  atomic.Int64
	bytesCopied  atomic.Int64
	dirsCreated  atomic.Int64
	filesRemoved atomic.Int64
	dirsRemoved  atomic.Int64
	retries      atomic.Int64
	startTime    time.Time
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

func (c *Collector) AddFilesPlanned(n int64) { c.filesPlanned.Add(n) }
func (c *Collector) AddFilesCopied(n int64)  { c.filesCopied.Add(n) }
func (c *Collector) AddFilesFailed(n int64)  { c.filesFailed.Add(n) }
func (c *Collector) AddBytesCopied(n int64)  { c.bytesCopied.Add(n) }
func (c *Collector) AddDirsCreated(n int64)  { c.dirsCreated.Add(n) }
func (c *Collector) AddFilesRemoved(n int64) { c.filesRemoved.Add(n) }
func (c *Collector) AddDirsRemoved(n int64)  { c.dirsRemoved.Add(n) }
func (c *Collector) AddRetries(n int64)      { c.retries.Add(n) }

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	FilesPlanned int64
	FilesCopied  int64
	FilesFailed  int64
	BytesCopied  int64
	DirsCreated  int64
	FilesRemoved int64
	DirsRemoved  int64
	Retries      int64
	Elapsed      time.Duration
}

// Snapshot returns a consistent point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		FilesPlanned: c.filesPlanned.Load(),
		FilesCopied:  c.filesCopied.Load(),
		FilesFailed:  c.filesFailed.Load(),
		BytesCopied:  c.bytesCopied.Load(),
		DirsCreated:  c.dirsCreated.Load(),
		FilesRemoved: c.filesRemoved.Load(),
		DirsRemoved:  c.dirsRemoved.Load(),
		Retries:      c.retries.Load(),
		Elapsed:      c.Elapsed(),
	}
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"planned=%d copied=%d failed=%d bytes=%d dirs=%d removed_files=%d removed_dirs=%d retries=%d",
		s.FilesPlanned, s.FilesCopied, s.FilesFailed, s.BytesCopied,
		s.DirsCreated, s.FilesRemoved, s.DirsRemoved, s.Retries,
	)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
