//go:build !linux

package platform

// CopyFile uses pread/pwrite on platforms without copy_file_range.
func CopyFile(params CopyFileParams) (CopyResult, error) {
	if params.Size == 0 {
		return CopyResult{Method: ReadWrite}, nil
	}
	preallocate(params.Dst, params.Size)
	return CopyReadWrite(params)
}
