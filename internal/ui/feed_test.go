package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/copycat/internal/event"
)

func runFeed(t *testing.T, p Presenter, evs ...event.Event) {
	t.Helper()
	ch := make(chan event.Event, len(evs))
	for _, ev := range evs {
		ch <- ev
	}
	close(ch)
	require.NoError(t, p.Run(ch))
}

func TestFeedPresenter_Outcomes(t *testing.T) {
	var out bytes.Buffer
	p := NewPresenter(Config{Writer: &out, SrcRoot: "/src", Feed: true})

	runFeed(t, p,
		event.Event{Type: event.RunStarted, Path: "/src"},
		event.Event{Type: event.DirCreated, DstPath: "/dst/a"},
		event.Event{Type: event.FileCopied, Path: "/src/a/b.txt", Size: 2048},
		event.Event{Type: event.FileSkipped, Path: "/src/a/c.txt", Reason: "modification times match"},
		event.Event{Type: event.FileFailed, Path: "/src/a/d.txt", Error: errors.New("target is read-only")},
		event.Event{Type: event.SymlinkIgnored, Path: "/src/link"},
		event.Event{Type: event.RunComplete},
	)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "a/b.txt  2.0 KiB", lines[0])
	assert.Equal(t, "a/c.txt  skipped (modification times match)", lines[1])
	assert.Equal(t, "a/d.txt  target is read-only", lines[2])
	assert.Equal(t, "link  symlink ignored", lines[3])
	assert.NotContains(t, out.String(), "\033[")
}

func TestFeedPresenter_Verify(t *testing.T) {
	var out bytes.Buffer
	p := NewPresenter(Config{Writer: &out, SrcRoot: "/src", Feed: true})

	runFeed(t, p,
		event.Event{Type: event.VerifyStarted, Size: 1200},
		event.Event{Type: event.VerifyOK, Path: "/src/ok"},
		event.Event{Type: event.VerifyFailed, Path: "/src/bad"},
	)

	assert.Equal(t, "verifying 1,200 files...\nMISMATCH: bad\n", out.String())
}

func TestFeedPresenter_Color(t *testing.T) {
	var out bytes.Buffer
	p := NewPresenter(Config{Writer: &out, Feed: true, Color: true})

	runFeed(t, p, event.Event{Type: event.FileFailed, Path: "x"})

	assert.Equal(t, ansiRed+"x  error"+ansiReset+"\n", out.String())
}

func TestFeedPresenter_Width(t *testing.T) {
	var out bytes.Buffer
	p := NewPresenter(Config{Writer: &out, Feed: true, Width: 40})

	long := strings.Repeat("d/", 30) + "file.txt"
	runFeed(t, p, event.Event{Type: event.FileCopied, Path: long, Size: 1})

	line := strings.TrimSuffix(out.String(), "\n")
	assert.True(t, strings.HasPrefix(line, "…"))
	assert.True(t, strings.HasSuffix(line, "file.txt  1 B"))
}

func TestQuietPresenter(t *testing.T) {
	p := NewPresenter(Config{})
	runFeed(t, p, event.Event{Type: event.FileCopied, Path: "x"})
}
