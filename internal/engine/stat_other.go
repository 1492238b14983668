//go:build !linux && !darwin

package engine

import (
	"io/fs"
	"os"
	"time"
)

func accessTime(info fs.FileInfo) time.Time {
	return info.ModTime()
}

func setFileTimes(f *os.File, accTime, modTime time.Time) error {
	return os.Chtimes(f.Name(), accTime, modTime)
}
