package ui

import (
	"fmt"
	"io"

	"github.com/bamsammich/copycat/internal/event"
)

// ANSI escape sequences.
const (
	ansiDim   = "\033[2m"
	ansiRed   = "\033[31m"
	ansiReset = "\033[0m"
)

// feedPresenter writes one line per file outcome.
type feedPresenter struct {
	w       io.Writer
	srcRoot string
	width   int
	color   bool
}

func (p *feedPresenter) Run(events <-chan event.Event) error {
	for ev := range events {
		p.handleEvent(ev)
	}
	return nil
}

func (p *feedPresenter) handleEvent(ev event.Event) {
	path := p.path(ev.Path)
	switch ev.Type {
	case event.FileCopied:
		fmt.Fprintf(p.w, "%s  %s\n", path, FormatBytes(ev.Size))
	case event.FileSkipped:
		p.printf(ansiDim, "%s  skipped (%s)\n", path, ev.Reason)
	case event.FileFailed:
		p.printf(ansiRed, "%s  %s\n", path, errText(ev.Error))
	case event.SymlinkIgnored:
		p.printf(ansiDim, "%s  symlink ignored\n", path)
	case event.CycleRejected:
		p.printf(ansiRed, "%s  cycle rejected\n", path)
	case event.TraversalFailed:
		p.printf(ansiRed, "%s  unreadable: %s\n", path, errText(ev.Error))
	case event.VerifyStarted:
		fmt.Fprintf(p.w, "verifying %s files...\n", FormatCount(ev.Size))
	case event.VerifyFailed:
		p.printf(ansiRed, "MISMATCH: %s\n", path)
	}
}

func (p *feedPresenter) path(path string) string {
	rel := StripRoot(p.srcRoot, path)
	if p.width > 0 {
		// Leave room for the status column.
		rel = truncateLeft(rel, max(p.width-24, 16))
	}
	return rel
}

func (p *feedPresenter) printf(color, format string, args ...any) {
	if p.color {
		format = color + format[:len(format)-1] + ansiReset + "\n"
	}
	fmt.Fprintf(p.w, format, args...)
}

func errText(err error) string {
	if err == nil {
		return "error"
	}
	return err.Error()
}
