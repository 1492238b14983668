package ui

import (
	"fmt"

	"github.com/bamsammich/copycat/internal/stats"
)

// CompletionSummary builds a final summary line from a snapshot.
// Format: done ✓  files 48,917  skipped 12  size 2.1 GiB  avg 641 MiB/s  time 3m 17s  errors 0
func CompletionSummary(snap stats.Snapshot) string {
	avgSpeed := 0.0
	if snap.Elapsed.Seconds() > 0 {
		avgSpeed = float64(snap.BytesCopied) / snap.Elapsed.Seconds()
	}

	icon := "✓"
	if snap.Failures() > 0 {
		icon = "✗"
	}

	base := fmt.Sprintf("done %s  files %s  skipped %s  size %s  avg %s  time %s",
		icon,
		FormatCount(snap.FilesCopied),
		FormatCount(snap.FilesSkipped),
		FormatBytes(snap.BytesCopied),
		FormatRate(avgSpeed),
		FormatDuration(snap.Elapsed),
	)

	if snap.FilesVerified > 0 || snap.FilesVerifyFailed > 0 {
		base += "  verified " + FormatCount(snap.FilesVerified)
	}
	if snap.SymlinksIgnored > 0 {
		base += "  symlinks ignored " + FormatCount(snap.SymlinksIgnored)
	}

	return base + fmt.Sprintf("  errors %d", snap.Failures())
}
