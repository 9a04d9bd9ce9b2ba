package engine

import (
	"fmt"
)

// ChangeState classifies a source file against its mirrored replica path
// using metadata only.
type ChangeState int

const (
	// Absent means no replica entry exists at the mirrored path.
	Absent ChangeState = iota
	// UnchangedMetadata means size and modification time match exactly.
	UnchangedMetadata
	// Changed means size or modification time differ.
	Changed
)

var changeStateNames = [...]string{
	Absent:            "Absent",
	UnchangedMetadata: "UnchangedMetadata",
	Changed:           "Changed",
}

func (s ChangeState) String() string {
	if int(s) < len(changeStateNames) {
		return changeStateNames[s]
	}
	return "Unknown"
}

// Task describes a single copy operation: the source file at Src must be
// copied (or overwritten) onto Dst. Both paths are absolute. Tasks are
// independent of each other and are consumed exactly once.
type Task struct {
	Src string
	Dst string
}

// Status is the terminal state of an executed Task.
type Status int

const (
	Succeeded Status = iota
	FailedAfterRetries
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "Succeeded"
	case FailedAfterRetries:
		return "FailedAfterRetries"
	default:
		return "Unknown"
	}
}

// Outcome is the result of executing one Task.
type Outcome struct {
	Task     Task
	Status   Status
	Attempts int
	Bytes    int64
	Err      error // last copy error or integrity mismatch; nil on success
}

// Removal records one entry deleted (or attempted) during reconciliation.
type Removal struct {
	Path string // absolute replica path
	Dir  bool
	Err  error // non-nil if the entry could not be removed
}

// IntegrityError reports a post-copy digest mismatch between a source file
// and its freshly written replica.
type IntegrityError struct {
	Src       string
	Dst       string
	SrcDigest uint64
	DstDigest uint64
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("digest mismatch copying %s -> %s: source=%016x replica=%016x",
		e.Src, e.Dst, e.SrcDigest, e.DstDigest)
}
