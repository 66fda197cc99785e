//go:build linux

package platform

import (
	"golang.org/x/sys/unix"
)

// CopyFile tries the most efficient copy method available on Linux,
// falling through on unsupported/cross-device errors.
func CopyFile(params CopyFileParams) (CopyResult, error) {
	if params.Size == 0 {
		return CopyResult{Method: ReadWrite}, nil
	}
	preallocate(params.Dst, params.Size)

	result, err := copyFileRange(params)
	if err == nil || !isFallbackErr(err) {
		return result, err
	}
	if result.BytesWritten > 0 {
		if err := rewind(params.Dst); err != nil {
			return CopyResult{}, err
		}
	}

	result, err = copySendfile(params)
	if err == nil || !isFallbackErr(err) {
		return result, err
	}
	if err := rewind(params.Dst); err != nil {
		return CopyResult{}, err
	}
	preallocate(params.Dst, params.Size)

	return CopyReadWrite(params)
}

//nolint:gosec // G115: fd values are small non-negative integers
func copyFileRange(params CopyFileParams) (CopyResult, error) {
	var roff, woff int64
	remaining := params.Size

	var total int64
	for remaining > 0 {
		n, err := unix.CopyFileRange(int(params.Src.Fd()), &roff, int(params.Dst.Fd()), &woff, int(remaining), 0)
		if err != nil {
			return CopyResult{BytesWritten: total, Method: CopyFileRange}, err
		}
		if n == 0 {
			break
		}
		remaining -= int64(n)
		total += int64(n)
	}

	return CopyResult{BytesWritten: total, Method: CopyFileRange}, nil
}

//nolint:gosec // G115: fd values are small non-negative integers
func copySendfile(params CopyFileParams) (CopyResult, error) {
	var offset int64
	remaining := params.Size

	var total int64
	for remaining > 0 {
		n, err := unix.Sendfile(int(params.Dst.Fd()), int(params.Src.Fd()), &offset, int(remaining))
		if err != nil {
			return CopyResult{BytesWritten: total, Method: Sendfile}, err
		}
		if n == 0 {
			break
		}
		remaining -= int64(n)
		total += int64(n)
	}

	return CopyResult{BytesWritten: total, Method: Sendfile}, nil
}
