package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bamsammich/copycat/internal/event"
)

// fixedTime is a timestamp far enough in the past that no copy can produce
// it by accident.
var fixedTime = time.Date(2021, 6, 15, 8, 30, 0, 123456789, time.UTC)

// writeFile creates path and its parents with the given content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// createTestTree populates root with:
//
//	root.txt
//	big.bin           (320KB)
//	sub/mid.txt
//	sub/deep/leaf.txt
//	empty/
func createTestTree(t *testing.T, root string) []string {
	t.Helper()
	writeFile(t, filepath.Join(root, "root.txt"), "root file content")
	big := make([]byte, 320*1024)
	for i := range big {
		big[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.bin"), big, 0o644))
	writeFile(t, filepath.Join(root, "sub", "mid.txt"), "middle file content")
	writeFile(t, filepath.Join(root, "sub", "deep", "leaf.txt"), "leaf file content")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	return []string{
		"root.txt",
		"big.bin",
		filepath.Join("sub", "mid.txt"),
		filepath.Join("sub", "deep", "leaf.txt"),
	}
}

// requireTreeCopy checks every file in files is byte-identical under both roots.
func requireTreeCopy(t *testing.T, srcRoot, dstRoot string, files []string) {
	t.Helper()
	for _, rel := range files {
		srcData, err := os.ReadFile(filepath.Join(srcRoot, rel))
		require.NoError(t, err, "read src %s", rel)
		dstData, err := os.ReadFile(filepath.Join(dstRoot, rel))
		require.NoError(t, err, "read dst %s", rel)
		require.Equal(t, srcData, dstData, "content mismatch: %s", rel)
	}
}

func testConfig(threads int) Config {
	cfg := DefaultConfig()
	cfg.Threads = threads
	return cfg
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

// collectEvents returns a channel large enough for the test's run and a
// function that drains whatever was sent so far.
func collectEvents() (chan event.Event, func() []event.Event) {
	ch := make(chan event.Event, 4096)
	return ch, func() []event.Event {
		var out []event.Event
		for {
			select {
			case ev := <-ch:
				out = append(out, ev)
			default:
				return out
			}
		}
	}
}

func countEvents(events []event.Event, typ event.Type) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}
