// Package engine copies a directory tree onto a destination in parallel.
//
// A Copy walks the source on a work-stealing pool: every directory is one
// task that mirrors itself at the destination and spawns a task per child.
// Each regular file is compared with its destination by the configured
// Strategy and then skipped, copied, or failed in isolation. Failures never
// stop the run; they are collected in the returned Report.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/bamsammich/copycat/internal/event"
	"github.com/bamsammich/copycat/internal/pool"
	"github.com/bamsammich/copycat/internal/stats"
)

// Failure is one file or directory the run could not handle.
type Failure struct {
	Err  error
	Path string
}

// Report summarizes one Copy call.
type Report struct {
	RunID          string
	Failures       []Failure
	VerifyFailures []*VerifyError
	Stats          stats.Snapshot
}

// Err joins every failure of the run, or returns nil when there was none.
func (r Report) Err() error {
	errs := make([]error, 0, len(r.Failures)+len(r.VerifyFailures))
	for _, f := range r.Failures {
		errs = append(errs, f.Err)
	}
	for _, v := range r.VerifyFailures {
		errs = append(errs, v)
	}
	return errors.Join(errs...)
}

// Engine owns a worker pool reused across Copy calls. It is safe for
// concurrent use.
type Engine struct {
	pool   *pool.Pool
	copier *copier
	cfg    Config
}

// New validates cfg and starts the worker pool.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	p, err := pool.New(cfg.workers())
	if err != nil {
		return nil, &ConfigError{Field: "threads", Err: err}
	}

	var limiter *rate.Limiter
	if cfg.BWLimit > 0 {
		limiter = NewBWLimiter(cfg.BWLimit)
	}

	log := cfg.logger()
	return &Engine{
		pool: p,
		cfg:  cfg,
		copier: &copier{
			limiter:          limiter,
			preserveMetadata: cfg.PreserveMetadata,
			metadataWarn: func(dst string, err error) {
				log.Warn("failed to preserve timestamps", "dst", dst, "error", err)
			},
		},
	}, nil
}

// Close stops the worker pool. The Engine must not be used afterwards.
func (e *Engine) Close() {
	e.pool.Close()
}

// Copy is a one-shot helper that builds an Engine for cfg, copies src onto
// dst and closes it.
func Copy(ctx context.Context, src, dst string, cfg Config) (Report, error) {
	e, err := New(cfg)
	if err != nil {
		return Report{}, err
	}
	defer e.Close()
	return e.Copy(ctx, src, dst)
}

// Copy replicates the tree rooted at src onto dst, creating dst if needed.
// It returns an error only when the run could not start or ctx was
// cancelled; per-file failures are reported through Report. A missing src
// is an error here, while a directory vanishing below it mid-walk is not.
func (e *Engine) Copy(ctx context.Context, src, dst string) (Report, error) {
	id := uuid.NewString()
	report := Report{RunID: id}

	if e.pool.Closed() {
		return report, pool.ErrClosed
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return report, &TraversalError{Op: "stat", Path: src, Err: err}
	}
	if !srcInfo.IsDir() {
		return report, &TraversalError{Op: "stat", Path: src, Err: ErrNotDirectory}
	}
	if dstInfo, err := os.Stat(dst); err == nil {
		if !dstInfo.IsDir() {
			return report, &TraversalError{Op: "stat", Path: dst, Err: ErrNotDirectory}
		}
		if os.SameFile(srcInfo, dstInfo) {
			return report, &TraversalError{Op: "copy", Path: dst, Err: ErrSameDirectory}
		}
	}

	r := e.newRun(ctx, id)
	r.log.Info("starting copy",
		"src", src,
		"dst", dst,
		"threads", e.pool.Size(),
		"comparison", e.cfg.Comparison,
	)
	event.Emit(r.events, event.Event{Type: event.RunStarted, Path: src, DstPath: dst})

	if err := r.ensureDir(dst, srcInfo.Mode().Perm()); err != nil {
		return report, &TraversalError{Op: "mkdir", Path: dst, Err: err}
	}
	if dstInfo, err := os.Stat(dst); err == nil {
		r.dstRoot, r.hasDstRoot = identify(dst, dstInfo)
	}

	if err := e.pool.Run(func(s *pool.Scope) { r.walk(s, src, dst, nil) }); errors.Is(err, pool.ErrClosed) {
		return r.report(), err
	} else if err != nil {
		r.log.Error("task panicked", "error", err)
		r.addFailure(src, fmt.Errorf("copy %s: %w", src, err))
	}

	if e.cfg.Verify && ctx.Err() == nil {
		r.verify(ctx, r.copiedFiles())
	}

	report = r.report()
	r.log.Info("copy complete", "stats", report.Stats.String(), "elapsed", report.Stats.Elapsed)
	event.Emit(r.events, event.Event{Type: event.RunComplete, Path: src, DstPath: dst})
	return report, ctx.Err()
}

// run is the state of one Copy call shared by its tasks.
type run struct {
	ctx    context.Context
	id     string
	cfg    *Config
	copier *copier
	log    *slog.Logger
	events chan<- event.Event
	stats  *stats.Collector
	dirs   singleflight.Group

	mu             sync.Mutex
	failures       []Failure
	verifyFailures []*VerifyError
	copied         []copiedFile

	dstRoot    dirID
	hasDstRoot bool
	workers    int
}

func (e *Engine) newRun(ctx context.Context, id string) *run {
	return &run{
		ctx:     ctx,
		id:      id,
		cfg:     &e.cfg,
		copier:  e.copier,
		log:     e.cfg.logger().With("run", id),
		events:  e.cfg.Events,
		stats:   stats.NewCollector(),
		workers: e.pool.Size(),
	}
}

// copyTask compares and copies one file. src is never a symlink.
func (r *run) copyTask(s *pool.Scope, src, dst string) {
	if r.ctx.Err() != nil {
		return
	}

	out := r.copyOne(src, dst)
	ev := event.Event{Path: src, DstPath: dst, WorkerID: s.WorkerID()}

	switch out.Kind {
	case Copied:
		r.stats.AddFilesCopied(1)
		r.stats.AddBytesCopied(out.Bytes)
		r.log.Info("copied file", "path", src, "dst", dst, "bytes", out.Bytes)
		if r.cfg.Verify {
			r.mu.Lock()
			r.copied = append(r.copied, copiedFile{src: src, dst: dst})
			r.mu.Unlock()
		}
		ev.Type = event.FileCopied
		ev.Size = out.Bytes
	case Skipped:
		r.stats.AddFilesSkipped(1)
		r.log.Debug("skipped file", "path", src, "dst", dst, "reason", out.Reason)
		ev.Type = event.FileSkipped
		ev.Reason = out.Reason
	case Failed:
		r.stats.AddFilesFailed(1)
		r.log.Error("copy failed", "path", src, "dst", dst, "error", out.Err)
		r.addFailure(src, out.Err)
		ev.Type = event.FileFailed
		ev.Error = out.Err
	}
	event.Emit(r.events, ev)
}

func (r *run) copyOne(src, dst string) Outcome {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return failed(classify("stat", src, err))
	}

	// Lstat so a symlink at the destination is replaced, not written through.
	var dstInfo os.FileInfo
	if info, err := os.Lstat(dst); err == nil {
		dstInfo = info
	} else if !errors.Is(err, os.ErrNotExist) {
		return failed(classify("stat", dst, err))
	}

	d := Decide(srcInfo, dstInfo, r.cfg.policy())
	if d.Action == Overwrite && dstInfo != nil && dstInfo.IsDir() {
		return failed(&FileCopyError{Op: "overwrite", Path: dst, Kind: KindAlreadyExists, Err: errIsDirectory})
	}
	return r.copier.copyFile(r.ctx, src, dst, srcInfo, d)
}

var errIsDirectory = errors.New("destination is a directory")

func (r *run) addFailure(path string, err error) {
	r.mu.Lock()
	r.failures = append(r.failures, Failure{Path: path, Err: err})
	r.mu.Unlock()
}

func (r *run) recordVerifyFailure(err *VerifyError) {
	r.mu.Lock()
	r.verifyFailures = append(r.verifyFailures, err)
	r.mu.Unlock()
}

func (r *run) copiedFiles() []copiedFile {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]copiedFile(nil), r.copied...)
}

func (r *run) report() Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Report{
		RunID:          r.id,
		Failures:       append([]Failure(nil), r.failures...),
		VerifyFailures: append([]*VerifyError(nil), r.verifyFailures...),
		Stats:          r.stats.Snapshot(),
	}
}
