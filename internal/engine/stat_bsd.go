//go:build freebsd || netbsd || openbsd || dragonfly

package engine

import (
	"io/fs"
	"syscall"
)

func fileID(info fs.FileInfo) (dirID, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return dirID{}, false
	}
	return dirID{dev: uint64(st.Dev), ino: uint64(st.Ino)}, true //nolint:gosec,unconvert // G115: dev_t width differs per BSD
}
