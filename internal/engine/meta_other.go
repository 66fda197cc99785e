//go:build !linux && !darwin

package engine

import (
	"io/fs"
	"os"
	"time"
)

func atimeOf(info fs.FileInfo) time.Time { return info.ModTime() }

func setFileTimes(_ int, fdPath string, accTime, modTime time.Time) error {
	return os.Chtimes(fdPath, accTime, modTime)
}

func copyXattrs(_ string, _ int) {}
