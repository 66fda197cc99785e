package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	ScanStarted Type = iota + 1
	ScanComplete
	FileCopied
	FileFailed
	FileSkipped
	DirCreated
	VerifyStarted
	VerifyOK
	VerifyFailed
	FilePlanned // dry run: target resolved, nothing written
)

var typeNames = [...]string{
	ScanStarted:   "ScanStarted",
	ScanComplete:  "ScanComplete",
	FileCopied:    "FileCopied",
	FileFailed:    "FileFailed",
	FileSkipped:   "FileSkipped",
	DirCreated:    "DirCreated",
	VerifyStarted: "VerifyStarted",
	VerifyOK:      "VerifyOK",
	VerifyFailed:  "VerifyFailed",
	FilePlanned:   "FilePlanned",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event represents a single progress event from the engine.
type Event struct {
	Timestamp time.Time
	Error     error
	Path      string // source path, relative to the source root
	Target    string // absolute destination path, when known
	Size      int64  // file size
	Total     int64  // total files (ScanComplete)
	TotalSize int64  // total bytes (ScanComplete)
	WorkerID  int
	Type      Type
}

// Emit sends e on ch without blocking. A nil channel or a full buffer
// drops the event; events are advisory and never gate the copy.
func Emit(ch chan<- Event, e Event) {
	if ch == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	select {
	case ch <- e:
	default:
	}
}
