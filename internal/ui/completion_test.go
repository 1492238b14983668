package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bamsammich/copycat/internal/stats"
)

func TestCompletionSummary(t *testing.T) {
	snap := stats.Snapshot{
		FilesCopied:  48917,
		FilesSkipped: 12,
		BytesCopied:  2 << 30,
		Elapsed:      4 * time.Second,
	}
	assert.Equal(t,
		"done ✓  files 48,917  skipped 12  size 2.0 GiB  avg 512 MiB/s  time 4s  errors 0",
		CompletionSummary(snap))
}

func TestCompletionSummary_Failures(t *testing.T) {
	snap := stats.Snapshot{
		FilesCopied:       3,
		FilesFailed:       1,
		TraversalErrors:   1,
		FilesVerified:     2,
		FilesVerifyFailed: 1,
		SymlinksIgnored:   4,
	}
	got := CompletionSummary(snap)
	assert.Contains(t, got, "done ✗")
	assert.Contains(t, got, "verified 2")
	assert.Contains(t, got, "symlinks ignored 4")
	assert.Contains(t, got, "errors 3")
	assert.Contains(t, got, "avg 0 B/s")
}
