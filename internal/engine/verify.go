package engine

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"

	"github.com/bamsammich/copycat/internal/event"
	"github.com/bamsammich/copycat/internal/platform"
)

// VerifyError records a file whose destination does not match its source
// after the copy, or that could not be hashed.
type VerifyError struct {
	Err     error
	Path    string
	SrcHash string
	DstHash string
}

func (e *VerifyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("verify %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("verify %s: checksum mismatch (src %s, dst %s)", e.Path, e.SrcHash, e.DstHash)
}

func (e *VerifyError) Unwrap() error { return e.Err }

// HashFile computes the BLAKE3 hash of the file at path, returning the hex-encoded digest.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	bufp := platform.GetBuffer()
	defer platform.PutBuffer(bufp)

	h := blake3.New()
	if _, err := io.CopyBuffer(h, f, *bufp); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// copiedFile is a source/destination pair written by the current run.
type copiedFile struct {
	src string
	dst string
}

// verify hashes both sides of every file copied in the run. Mismatches are
// recorded on the run, never returned.
func (r *run) verify(ctx context.Context, files []copiedFile) {
	if len(files) == 0 {
		return
	}
	event.Emit(r.events, event.Event{Type: event.VerifyStarted, Size: int64(len(files))})
	r.log.Info("verifying copied files", "files", len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, f := range files {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if verr := verifyOne(f); verr != nil {
				r.stats.AddFilesVerifyFailed(1)
				r.recordVerifyFailure(verr)
				r.log.Error("verification failed", "path", f.src, "dst", f.dst, "error", verr)
				event.Emit(r.events, event.Event{
					Type:    event.VerifyFailed,
					Path:    f.src,
					DstPath: f.dst,
					Error:   verr,
				})
				return nil
			}
			r.stats.AddFilesVerified(1)
			event.Emit(r.events, event.Event{Type: event.VerifyOK, Path: f.src, DstPath: f.dst})
			return nil
		})
	}
	_ = g.Wait()
}

func verifyOne(f copiedFile) *VerifyError {
	srcHash, err := HashFile(f.src)
	if err != nil {
		return &VerifyError{Path: f.dst, Err: err}
	}
	dstHash, err := HashFile(f.dst)
	if err != nil {
		return &VerifyError{Path: f.dst, SrcHash: srcHash, Err: err}
	}
	if srcHash != dstHash {
		return &VerifyError{Path: f.dst, SrcHash: srcHash, DstHash: dstHash}
	}
	return nil
}
