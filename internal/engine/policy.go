package engine

import (
	"io/fs"
	"time"
)

// Action is what the copier does with one file.
type Action int

const (
	Overwrite Action = iota
	Skip
	Abort
)

func (a Action) String() string {
	switch a {
	case Overwrite:
		return "overwrite"
	case Skip:
		return "skip"
	case Abort:
		return "abort"
	default:
		return "unknown"
	}
}

// Decision is the result of comparing a source file with its destination.
type Decision struct {
	Reason string
	Action Action
	// RemoveFirst is set when an existing destination must be unlinked
	// before the new copy is created.
	RemoveFirst bool
	// InPlace is set when an existing destination is truncated and
	// rewritten instead of being removed.
	InPlace bool
}

// Policy is the comparison configuration consulted for every file.
type Policy struct {
	Strategy      Strategy
	ModTimeWindow time.Duration
	SizeAware     bool
}

const (
	reasonExists    = "destination exists"
	reasonSameMtime = "modification times match"
)

// Decide compares src with dst, which is nil when the destination does not
// exist. It performs no I/O.
func Decide(src, dst fs.FileInfo, p Policy) Decision {
	if dst == nil {
		return Decision{Action: Overwrite}
	}

	switch p.Strategy {
	case StrategyExists:
		return Decision{Action: Skip, Reason: reasonExists}
	case StrategyDate:
		if sameModTime(src.ModTime(), dst.ModTime(), p.ModTimeWindow) {
			return Decision{Action: Skip, Reason: reasonSameMtime}
		}
		if readOnly(dst) {
			return Decision{Action: Abort, Reason: ErrReadOnlyTarget.Error()}
		}
	}

	if p.SizeAware && dst.Mode().IsRegular() && src.Size() == dst.Size() {
		return Decision{Action: Overwrite, InPlace: true}
	}
	return Decision{Action: Overwrite, RemoveFirst: true}
}

func sameModTime(a, b time.Time, window time.Duration) bool {
	if window > 0 {
		a = a.Truncate(window)
		b = b.Truncate(window)
	}
	return a.Equal(b)
}

// readOnly reports whether the owner-write bit is clear.
func readOnly(info fs.FileInfo) bool {
	return info.Mode().Perm()&0o200 == 0
}
