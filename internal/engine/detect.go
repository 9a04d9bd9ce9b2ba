package engine

import (
	"os"
)

// Detector decides whether a source file needs to be copied onto its
// mirrored replica path.
type Detector struct {
	// Strict enables content hashing of files whose metadata looks
	// unchanged, catching modifications that preserve size and mtime
	// (e.g. a file restored from backup). Costs a digest of every
	// metadata-clean candidate on every pass.
	Strict bool
}

// Classify compares src against the entry at dstPath using metadata only.
// Timestamp equality is exact, at whatever precision the filesystem
// exposes; sub-second differences the metadata does not record are
// invisible here, which is one motivation for strict mode.
func Classify(src os.FileInfo, dstPath string) ChangeState {
	dst, err := os.Lstat(dstPath)
	if err != nil {
		return Absent
	}
	if src.Size() != dst.Size() || !src.ModTime().Equal(dst.ModTime()) {
		return Changed
	}
	return UnchangedMetadata
}

// NeedsCopy reports whether the file at srcPath must be copied onto
// dstPath. Files that fail the metadata check are queued directly without
// a digest comparison: the executor verifies digests after every copy
// anyway. In strict mode a metadata-clean file is digest-compared on both
// sides. A digest failure queues the file and returns the error, so the
// underlying problem resurfaces during the copy phase.
func (d Detector) NeedsCopy(srcPath string, src os.FileInfo, dstPath string) (bool, error) {
	switch Classify(src, dstPath) {
	case Absent, Changed:
		return true, nil
	}
	if !d.Strict {
		return false, nil
	}

	srcSum, err := Digest(srcPath)
	if err != nil {
		return true, err
	}
	dstSum, err := Digest(dstPath)
	if err != nil {
		return true, err
	}
	return srcSum != dstSum, nil
}
