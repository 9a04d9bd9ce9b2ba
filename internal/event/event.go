package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	PassStarted Type = iota + 1
	PlanComplete
	DirCreated
	FileCopied
	FileFailed
	FileRemoved
	DirRemoved
	RemoveFailed
	PassComplete
)

var typeNames = [...]string{
	PassStarted:  "PassStarted",
	PlanComplete: "PlanComplete",
	DirCreated:   "DirCreated",
	FileCopied:   "FileCopied",
	FileFailed:   "FileFailed",
	FileRemoved:  "FileRemoved",
	DirRemoved:   "DirRemoved",
	RemoveFailed: "RemoveFailed",
	PassComplete: "PassComplete",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event represents a single progress event from a synchronization pass.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string // absolute path of the affected entry
	Size      int64  // file size (FileCopied) or planned task count (PlanComplete)
	Attempts  int    // attempts used (FileCopied, FileFailed)
	Error     error
}
