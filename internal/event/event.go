package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	RunStarted Type = iota + 1
	RunComplete
	DirCreated
	FileCopied
	FileSkipped
	FileFailed
	SymlinkIgnored
	CycleRejected
	TraversalFailed
	VerifyStarted
	VerifyOK
	VerifyFailed
)

var typeNames = [...]string{
	RunStarted:      "RunStarted",
	RunComplete:     "RunComplete",
	DirCreated:      "DirCreated",
	FileCopied:      "FileCopied",
	FileSkipped:     "FileSkipped",
	FileFailed:      "FileFailed",
	SymlinkIgnored:  "SymlinkIgnored",
	CycleRejected:   "CycleRejected",
	TraversalFailed: "TraversalFailed",
	VerifyStarted:   "VerifyStarted",
	VerifyOK:        "VerifyOK",
	VerifyFailed:    "VerifyFailed",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event represents a single progress event from the engine.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string // source path
	DstPath   string
	Size      int64 // bytes copied
	Reason    string
	Error     error
	WorkerID  int
}

// Emit sends e on ch without blocking. Events are dropped when ch is nil
// or full.
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
