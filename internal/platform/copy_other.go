//go:build !linux

package platform

// CopyFile falls back to read/write on platforms without an in-kernel copy.
func CopyFile(params CopyFileParams) (CopyResult, error) {
	preallocate(params.DstFd, params.SrcSize)
	return copyReadWrite(params)
}
