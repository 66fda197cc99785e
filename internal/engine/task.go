package engine

import (
	"io/fs"
	"path/filepath"
	"time"

	"github.com/bamsammich/extsort/internal/platform"
)

// SourceFile is one regular file found under the source root.
type SourceFile struct {
	ModTime time.Time
	Path    string // absolute
	RelPath string // relative to the source root, OS separators
	Size    int64
	Mode    fs.FileMode
}

// Name returns the file's base name.
func (f SourceFile) Name() string { return filepath.Base(f.RelPath) }

// RelDir returns the directory part of RelPath, or "." for top-level files.
func (f SourceFile) RelDir() string { return filepath.Dir(f.RelPath) }

// Outcome is the terminal state of one file.
type Outcome int

const (
	Copied Outcome = iota + 1
	Skipped
	Failed
	Planned // dry run: target resolved, nothing written
)

func (o Outcome) String() string {
	switch o {
	case Copied:
		return "copied"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	case Planned:
		return "planned"
	default:
		return "unknown"
	}
}

// FileResult reports what happened to one SourceFile.
type FileResult struct {
	Err     error
	File    SourceFile
	Target  string // final destination path; empty if none was reached
	Bucket  string
	Bytes   int64
	Outcome Outcome
	Method  platform.CopyMethod
}
