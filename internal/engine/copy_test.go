package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteSuccess(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	writeFile(t, src, "payload to copy")

	ex := newTestExecutor()
	out := ex.Execute(Task{Src: src, Dst: dst})

	assert.Equal(t, Succeeded, out.Status)
	assert.Equal(t, 1, out.Attempts)
	assert.NoError(t, out.Err)
	assert.Equal(t, int64(len("payload to copy")), out.Bytes)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload to copy", string(data))

	// mtime carried over so the next pass sees the replica as unchanged.
	srcInfo, err := os.Stat(src)
	require.NoError(t, err)
	dstInfo, err := os.Stat(dst)
	require.NoError(t, err)
	assert.True(t, srcInfo.ModTime().Equal(dstInfo.ModTime()))

	s := ex.Stats.Snapshot()
	assert.Equal(t, int64(1), s.FilesCopied)
	assert.Equal(t, int64(0), s.FilesFailed)
	assert.Equal(t, int64(0), s.Retries)
}

func TestExecuteOverwrites(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	writeFile(t, src, "new")
	writeFile(t, dst, "previous replica content, longer than the source")

	out := newTestExecutor().Execute(Task{Src: src, Dst: dst})
	assert.Equal(t, Succeeded, out.Status)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestExecuteEmptyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "empty.txt")
	dst := filepath.Join(dir, "dst.txt")
	require.NoError(t, os.WriteFile(src, nil, 0o644))

	out := newTestExecutor().Execute(Task{Src: src, Dst: dst})
	assert.Equal(t, Succeeded, out.Status)
	assert.Equal(t, int64(0), out.Bytes)

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())
}

// A destination that cannot be written exhausts the full attempt budget:
// one initial try plus three retries.
func TestExecuteRetryBound(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "blocked")
	writeFile(t, src, "content")
	// Occupying the destination path with a directory makes every copy
	// attempt fail the same way, independent of process privileges.
	require.NoError(t, os.MkdirAll(dst, 0o755))

	ex := newTestExecutor()
	out := ex.Execute(Task{Src: src, Dst: dst})

	assert.Equal(t, FailedAfterRetries, out.Status)
	assert.Equal(t, 1+maxRetries, out.Attempts)
	assert.Error(t, out.Err)

	s := ex.Stats.Snapshot()
	assert.Equal(t, int64(maxRetries), s.Retries)
	assert.Equal(t, int64(1), s.FilesFailed)
	assert.Equal(t, int64(0), s.FilesCopied)
}

func TestExecuteMissingSource(t *testing.T) {
	dir := t.TempDir()
	out := newTestExecutor().Execute(Task{
		Src: filepath.Join(dir, "vanished.txt"),
		Dst: filepath.Join(dir, "dst.txt"),
	})

	assert.Equal(t, FailedAfterRetries, out.Status)
	assert.Equal(t, 1+maxRetries, out.Attempts)
	assert.True(t, errors.Is(out.Err, os.ErrNotExist))
}

func TestIntegrityErrorMessage(t *testing.T) {
	err := &IntegrityError{
		Src:       "/a/file",
		Dst:       "/b/file",
		SrcDigest: 0xdeadbeef,
		DstDigest: 0xcafe,
	}
	assert.Contains(t, err.Error(), "/a/file")
	assert.Contains(t, err.Error(), "/b/file")
	assert.Contains(t, err.Error(), "deadbeef")
}

func TestCopyFilePreservesMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "script.sh")
	dst := filepath.Join(dir, "copy.sh")
	require.NoError(t, os.WriteFile(src, []byte("#!/bin/sh\n"), 0o755))

	_, err := copyFile(src, dst)
	require.NoError(t, err)

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}
