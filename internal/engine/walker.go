package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bamsammich/copycat/internal/event"
	"github.com/bamsammich/copycat/internal/pool"
)

type entryKind int

const (
	kindOther entryKind = iota
	kindFile
	kindDir
	kindSymlink
)

// entry is one child of a directory being walked, paired with the path it
// mirrors to.
type entry struct {
	src  string
	dst  string
	kind entryKind
}

func kindOf(mode fs.FileMode) entryKind {
	switch {
	case mode.IsDir():
		return kindDir
	case mode&fs.ModeSymlink != 0:
		return kindSymlink
	case mode.IsRegular():
		return kindFile
	default:
		return kindOther
	}
}

// dirID identifies a directory independently of the path it was reached by:
// its (dev, ino) where the platform exposes them, otherwise its resolved
// absolute path.
type dirID struct {
	path string
	dev  uint64
	ino  uint64
}

func identify(dir string, info fs.FileInfo) (dirID, bool) {
	if id, ok := fileID(info); ok {
		return id, true
	}
	return pathID(dir)
}

func pathID(dir string) (dirID, bool) {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return dirID{}, false
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return dirID{}, false
	}
	return dirID{path: abs}, true
}

// ancestry is the chain of directories above a walk, innermost first.
type ancestry struct {
	parent *ancestry
	id     dirID
}

func (a *ancestry) contains(id dirID) bool {
	for ; a != nil; a = a.parent {
		if a.id == id {
			return true
		}
	}
	return false
}

// walk mirrors srcDir onto dstDir and spawns one task per child into s.
func (r *run) walk(s *pool.Scope, srcDir, dstDir string, parents *ancestry) {
	if r.ctx.Err() != nil {
		return
	}

	info, err := os.Stat(srcDir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.traversalFailed(&TraversalError{Op: "stat", Path: srcDir, Err: err})
		}
		return
	}
	if !info.IsDir() {
		return
	}

	if id, ok := identify(srcDir, info); ok {
		if parents.contains(id) {
			r.stats.AddCyclesRejected(1)
			r.log.Warn("directory cycle rejected", "path", srcDir, "dst", dstDir)
			event.Emit(r.events, event.Event{
				Type:     event.CycleRejected,
				Path:     srcDir,
				DstPath:  dstDir,
				WorkerID: s.WorkerID(),
			})
			return
		}
		if r.hasDstRoot && id == r.dstRoot {
			r.log.Debug("skipping destination inside source", "path", srcDir)
			return
		}
		parents = &ancestry{parent: parents, id: id}
	}

	if err := r.ensureDir(dstDir, info.Mode().Perm()); err != nil {
		r.traversalFailed(&TraversalError{Op: "mkdir", Path: dstDir, Err: err})
		return
	}

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		r.traversalFailed(&TraversalError{Op: "readdir", Path: srcDir, Err: err})
		return
	}

	for _, de := range entries {
		name := de.Name()
		r.dispatch(s, entry{
			src:  filepath.Join(srcDir, name),
			dst:  filepath.Join(dstDir, name),
			kind: kindOf(de.Type()),
		}, parents)
	}
}

func (r *run) dispatch(s *pool.Scope, e entry, parents *ancestry) {
	switch e.kind {
	case kindDir:
		s.Spawn(func(s *pool.Scope) { r.walk(s, e.src, e.dst, parents) })
	case kindFile:
		s.Spawn(func(s *pool.Scope) { r.copyTask(s, e.src, e.dst) })
	case kindSymlink:
		r.dispatchSymlink(s, e, parents)
	default:
		r.log.Debug("skipping special file", "path", e.src)
	}
}

func (r *run) dispatchSymlink(s *pool.Scope, e entry, parents *ancestry) {
	if !r.cfg.FollowSymlinks {
		r.ignoreSymlink(s, e, "symlinks not followed")
		return
	}

	target, err := filepath.EvalSymlinks(e.src)
	if err != nil {
		r.log.Warn("ignoring unresolvable symlink", "path", e.src, "error", err)
		r.ignoreSymlink(s, e, "unresolvable target")
		return
	}
	info, err := os.Stat(target)
	if err != nil {
		r.log.Warn("ignoring unresolvable symlink", "path", e.src, "error", err)
		r.ignoreSymlink(s, e, "unresolvable target")
		return
	}

	switch kindOf(info.Mode()) {
	case kindDir:
		s.Spawn(func(s *pool.Scope) { r.walk(s, target, e.dst, parents) })
	case kindFile:
		s.Spawn(func(s *pool.Scope) { r.copyTask(s, target, e.dst) })
	default:
		r.log.Debug("skipping symlink to special file", "path", e.src, "target", target)
	}
}

func (r *run) ignoreSymlink(s *pool.Scope, e entry, reason string) {
	r.stats.AddSymlinksIgnored(1)
	r.log.Debug("ignoring symlink", "path", e.src, "reason", reason)
	event.Emit(r.events, event.Event{
		Type:     event.SymlinkIgnored,
		Path:     e.src,
		Reason:   reason,
		WorkerID: s.WorkerID(),
	})
}

// ensureDir creates path and any missing parents. Concurrent calls for the
// same path share one attempt.
func (r *run) ensureDir(path string, perm fs.FileMode) error {
	_, err, _ := r.dirs.Do(path, func() (any, error) {
		info, err := os.Stat(path)
		if err == nil {
			if !info.IsDir() {
				return nil, fmt.Errorf("%s: %w", path, ErrNotDirectory)
			}
			return nil, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		// Keep the owner able to populate the directory.
		if err := os.MkdirAll(path, perm|0o700); err != nil {
			return nil, err
		}
		r.stats.AddDirsCreated(1)
		r.log.Debug("created directory", "dst", path)
		event.Emit(r.events, event.Event{Type: event.DirCreated, DstPath: path})
		return nil, nil
	})
	return err
}

func (r *run) traversalFailed(err *TraversalError) {
	r.stats.AddTraversalErrors(1)
	r.log.Error("traversal failed", "path", err.Path, "error", err.Err)
	r.addFailure(err.Path, err)
	event.Emit(r.events, event.Event{Type: event.TraversalFailed, Path: err.Path, Error: err})
}
