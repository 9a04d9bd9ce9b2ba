package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector()
	const goroutines = 100
	const opsPerGoroutine = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < opsPerGoroutine; j++ {
				c.AddFilesPlanned(1)
				c.AddFilesCopied(1)
				c.AddFilesFailed(1)
				c.AddBytesCopied(256)
				c.AddDirsCreated(1)
				c.AddFilesRemoved(1)
				c.AddDirsRemoved(1)
				c.AddRetries(1)
			}
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	expected := int64(goroutines * opsPerGoroutine)
	assert.Equal(t, expected, s.FilesPlanned)
	assert.Equal(t, expected, s.FilesCopied)
	assert.Equal(t, expected, s.FilesFailed)
	assert.Equal(t, expected*256, s.BytesCopied)
	assert.Equal(t, expected, s.DirsCreated)
	assert.Equal(t, expected, s.FilesRemoved)
	assert.Equal(t, expected, s.DirsRemoved)
	assert.Equal(t, expected, s.Retries)
}

func TestSnapshotString(t *testing.T) {
	s := Snapshot{
		FilesPlanned: 10,
		FilesCopied:  8,
		FilesFailed:  1,
		BytesCopied:  4096,
		DirsCreated:  3,
		FilesRemoved: 2,
		DirsRemoved:  1,
		Retries:      5,
	}
	expected := "planned=10 copied=8 failed=1 bytes=4096 dirs=3 removed_files=2 removed_dirs=1 retries=5"
	assert.Equal(t, expected, s.String())
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1048576, "1.0 MiB"},
		{1073741824, "1.0 GiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.in))
	}
}
