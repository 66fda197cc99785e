// Package platform copies file bytes using the fastest primitive the kernel
// offers, falling back to a pooled pread/pwrite loop.
package platform

import "os"

// CopyMethod identifies which syscall/strategy was used for a copy.
type CopyMethod int

const (
	ReadWrite     CopyMethod = iota
	CopyFileRange            // Linux copy_file_range(2)
	Sendfile                 // Linux sendfile(2)
	Stream                   // io.Copy through a throttled reader
)

func (m CopyMethod) String() string {
	switch m {
	case ReadWrite:
		return "read_write"
	case CopyFileRange:
		return "copy_file_range"
	case Sendfile:
		return "sendfile"
	case Stream:
		return "stream"
	default:
		return "unknown"
	}
}

// CopyResult reports the outcome of a copy operation.
type CopyResult struct {
	BytesWritten int64
	Method       CopyMethod
}

// CopyFileParams describes a whole-file copy between two open files.
// Both files are positioned by offset, never by their seek pointer, except
// for sendfile which writes at the destination's current offset.
type CopyFileParams struct {
	Src  *os.File
	Dst  *os.File
	Size int64
}
