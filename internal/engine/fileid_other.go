//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly

package engine

import "io/fs"

// fileID is unavailable here; directories are identified by their
// resolved path instead.
func fileID(fs.FileInfo) (dirID, bool) {
	return dirID{}, false
}
