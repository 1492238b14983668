package stats

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Collector tracks copy statistics using lock-free atomic counters. It is
// shared by every task of a run.
type Collector struct {
	filesCopied       atomic.Int64
	filesSkipped      atomic.Int64
	filesFailed       atomic.Int64
	bytesCopied       atomic.Int64
	dirsCreated       atomic.Int64
	symlinksIgnored   atomic.Int64
	cyclesRejected    atomic.Int64
	traversalErrors   atomic.Int64
	filesVerified     atomic.Int64
	filesVerifyFailed atomic.Int64
	startTime         time.Time
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	FilesCopied       int64
	FilesSkipped      int64
	FilesFailed       int64
	BytesCopied       int64
	DirsCreated       int64
	SymlinksIgnored   int64
	CyclesRejected    int64
	TraversalErrors   int64
	FilesVerified     int64
	FilesVerifyFailed int64
	Elapsed           time.Duration
}

func (c *Collector) AddFilesCopied(n int64)       { c.filesCopied.Add(n) }
func (c *Collector) AddFilesSkipped(n int64)      { c.filesSkipped.Add(n) }
func (c *Collector) AddFilesFailed(n int64)       { c.filesFailed.Add(n) }
func (c *Collector) AddBytesCopied(n int64)       { c.bytesCopied.Add(n) }
func (c *Collector) AddDirsCreated(n int64)       { c.dirsCreated.Add(n) }
func (c *Collector) AddSymlinksIgnored(n int64)   { c.symlinksIgnored.Add(n) }
func (c *Collector) AddCyclesRejected(n int64)    { c.cyclesRejected.Add(n) }
func (c *Collector) AddTraversalErrors(n int64)   { c.traversalErrors.Add(n) }
func (c *Collector) AddFilesVerified(n int64)     { c.filesVerified.Add(n) }
func (c *Collector) AddFilesVerifyFailed(n int64) { c.filesVerifyFailed.Add(n) }

// Snapshot returns a point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		FilesCopied:       c.filesCopied.Load(),
		FilesSkipped:      c.filesSkipped.Load(),
		FilesFailed:       c.filesFailed.Load(),
		BytesCopied:       c.bytesCopied.Load(),
		DirsCreated:       c.dirsCreated.Load(),
		SymlinksIgnored:   c.symlinksIgnored.Load(),
		CyclesRejected:    c.cyclesRejected.Load(),
		TraversalErrors:   c.traversalErrors.Load(),
		FilesVerified:     c.filesVerified.Load(),
		FilesVerifyFailed: c.filesVerifyFailed.Load(),
		Elapsed:           c.Elapsed(),
	}
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	if c.startTime.IsZero() {
		return 0
	}
	return time.Since(c.startTime)
}

// Failures is the number of entries that did not make it to the destination
// intact: failed files, unreadable directories and verification mismatches.
func (s Snapshot) Failures() int64 {
	return s.FilesFailed + s.TraversalErrors + s.FilesVerifyFailed
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"copied=%d skipped=%d failed=%d bytes=%d dirs=%d symlinks_ignored=%d cycles=%d traversal_errors=%d",
		s.FilesCopied, s.FilesSkipped, s.FilesFailed, s.BytesCopied,
		s.DirsCreated, s.SymlinksIgnored, s.CyclesRejected, s.TraversalErrors,
	)
}
