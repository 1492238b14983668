package engine

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"

	"golang.org/x/time/rate"

	"github.com/bamsammich/copycat/internal/platform"
)

// OutcomeKind is the result class of a single file copy.
type OutcomeKind int

const (
	Copied OutcomeKind = iota
	Skipped
	Failed
)

func (k OutcomeKind) String() string {
	switch k {
	case Copied:
		return "copied"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome describes what happened to one file. Bytes is set for Copied,
// Reason for Skipped and Err for Failed.
type Outcome struct {
	Err    *FileCopyError
	Reason string
	Bytes  int64
	Kind   OutcomeKind
}

func failed(err *FileCopyError) Outcome {
	return Outcome{Kind: Failed, Err: err}
}

// copier moves the contents and timestamps of single files. It holds no
// per-file state and is shared by every worker.
type copier struct {
	limiter          *rate.Limiter
	preserveMetadata bool
	// metadataWarn is called when timestamps could not be applied.
	metadataWarn func(dst string, err error)
}

// copyFile applies d to the pair src, dst. srcInfo is the followed stat of src.
func (c *copier) copyFile(ctx context.Context, src, dst string, srcInfo fs.FileInfo, d Decision) Outcome {
	switch d.Action {
	case Skip:
		return Outcome{Kind: Skipped, Reason: d.Reason}
	case Abort:
		return failed(&FileCopyError{Op: "overwrite", Path: dst, Kind: KindReadOnlyTarget, Err: ErrReadOnlyTarget})
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	switch {
	case d.InPlace:
		flags = os.O_WRONLY | os.O_TRUNC
	case d.RemoveFirst:
		if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return failed(classify("remove", dst, err))
		}
	}

	out, err := os.OpenFile(dst, flags, srcInfo.Mode().Perm())
	if err != nil {
		return failed(classify("create", dst, err))
	}

	n, err := c.copyData(ctx, src, out, srcInfo.Size())
	if err != nil {
		out.Close()
		if !d.InPlace {
			os.Remove(dst)
		}
		return failed(classify("copy", dst, err))
	}

	if c.preserveMetadata {
		if err := setFileTimes(out, accessTime(srcInfo), srcInfo.ModTime()); err != nil && c.metadataWarn != nil {
			c.metadataWarn(dst, err)
		}
	}

	if err := out.Close(); err != nil {
		return failed(classify("close", dst, err))
	}
	return Outcome{Kind: Copied, Bytes: n}
}

func (c *copier) copyData(ctx context.Context, src string, dst *os.File, size int64) (int64, error) {
	if c.limiter == nil {
		res, err := platform.CopyFile(platform.CopyFileParams{
			SrcPath: src,
			DstFd:   dst,
			SrcSize: size,
		})
		return res.BytesWritten, err
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	bufp := platform.GetBuffer()
	defer platform.PutBuffer(bufp)

	// Hide ReaderFrom so the pooled buffer is used.
	return io.CopyBuffer(struct{ io.Writer }{dst}, newRateLimitedReader(ctx, in, c.limiter), *bufp)
}
