package engine

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrReadOnlyTarget is the cause of a copy aborted because the stale
	// destination is not writable.
	ErrReadOnlyTarget = errors.New("target is read-only")
	// ErrNotDirectory is returned when a path that must be a directory is not.
	ErrNotDirectory = errors.New("not a directory")
	// ErrSameDirectory is returned when source and destination are the same directory.
	ErrSameDirectory = errors.New("source and destination are the same directory")
)

// ConfigError reports an invalid configuration. It is returned before any
// filesystem work starts.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// TraversalError reports a directory that could not be read or mirrored.
// Below the root it only ends the affected subtree.
type TraversalError struct {
	Op   string
	Path string
	Err  error
}

func (e *TraversalError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TraversalError) Unwrap() error { return e.Err }

// ErrorKind classifies a FileCopyError.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindPermissionDenied
	KindAlreadyExists
	KindReadOnlyTarget
)

func (k ErrorKind) String() string {
	switch k {
	case KindPermissionDenied:
		return "permission denied"
	case KindAlreadyExists:
		return "already exists"
	case KindReadOnlyTarget:
		return "read-only target"
	default:
		return "io error"
	}
}

// FileCopyError reports the failure of a single file. It never affects
// other files of the run.
type FileCopyError struct {
	Err  error
	Op   string
	Path string
	Kind ErrorKind
}

func (e *FileCopyError) Error() string {
	return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Path, e.Kind, e.Err)
}

func (e *FileCopyError) Unwrap() error { return e.Err }

// classify wraps err in a FileCopyError with a kind derived from its cause.
func classify(op, path string, err error) *FileCopyError {
	kind := KindOther
	switch {
	case errors.Is(err, ErrReadOnlyTarget):
		kind = KindReadOnlyTarget
	case errors.Is(err, fs.ErrPermission):
		kind = KindPermissionDenied
	case errors.Is(err, fs.ErrExist):
		kind = KindAlreadyExists
	}
	return &FileCopyError{Op: op, Path: path, Kind: kind, Err: err}
}
