//go:build linux

package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

// CopyFile tries the most efficient copy method available on Linux,
// falling through on unsupported/cross-device errors. A method that has
// already written bytes never falls through.
func CopyFile(params CopyFileParams) (CopyResult, error) {
	preallocate(params.DstFd, params.SrcSize)

	result, err := copyFileRange(params)
	if done(params, result, err) {
		return result, err
	}

	result, err = copySendfile(params)
	if done(params, result, err) {
		return result, err
	}

	return copyReadWrite(params)
}

// done reports whether a copy attempt is final. Some filesystems report a
// successful zero-byte copy_file_range for non-empty files; that case falls
// through like an unsupported call.
func done(params CopyFileParams, result CopyResult, err error) bool {
	if result.BytesWritten > 0 {
		return true
	}
	if err != nil {
		return !isFallbackErr(err)
	}
	return params.SrcSize == 0
}

func copyFileRange(params CopyFileParams) (CopyResult, error) {
	srcFd, err := os.Open(params.SrcPath)
	if err != nil {
		return CopyResult{}, err
	}
	defer srcFd.Close()

	var roff, woff int64
	var totalWritten int64
	for {
		n, err := unix.CopyFileRange(int(srcFd.Fd()), &roff, int(params.DstFd.Fd()), &woff, maxChunk, 0)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return CopyResult{BytesWritten: totalWritten, Method: CopyFileRange}, err
		}
		if n == 0 {
			break
		}
		totalWritten += int64(n)
	}

	return CopyResult{BytesWritten: totalWritten, Method: CopyFileRange}, nil
}

func copySendfile(params CopyFileParams) (CopyResult, error) {
	srcFd, err := os.Open(params.SrcPath)
	if err != nil {
		return CopyResult{}, err
	}
	defer srcFd.Close()

	var offset int64
	var totalWritten int64
	for {
		n, err := unix.Sendfile(int(params.DstFd.Fd()), int(srcFd.Fd()), &offset, maxChunk)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return CopyResult{BytesWritten: totalWritten, Method: Sendfile}, err
		}
		if n == 0 {
			break
		}
		totalWritten += int64(n)
	}

	return CopyResult{BytesWritten: totalWritten, Method: Sendfile}, nil
}
