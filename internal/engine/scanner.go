package engine

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/bamsammich/extsort/internal/filter"
)

// ScannerConfig controls scanner behavior.
type ScannerConfig struct {
	Filter  *filter.Chain
	Logger  *slog.Logger
	SrcRoot string
	// Prune lists absolute directories that are never descended, such as a
	// destination root nested inside the source.
	Prune   []string
	Workers int
}

// Scanner traverses a directory tree in parallel and emits every regular
// file below the root. Symlinked directories are never followed, so link
// cycles cannot trap the walk.
type Scanner struct {
	log   *slog.Logger
	files chan SourceFile
	errs  chan error
	cfg   ScannerConfig
}

// NewScanner creates a scanner with the given config.
func NewScanner(cfg ScannerConfig) *Scanner {
	if cfg.Workers <= 0 {
		cfg.Workers = min(runtime.NumCPU(), 8)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Scanner{
		cfg:   cfg,
		log:   log,
		files: make(chan SourceFile, cfg.Workers*4),
		errs:  make(chan error, cfg.Workers*4),
	}
}

// Scan starts the scanner and returns channels for files and errors.
// The caller must consume from both channels until they close.
func (s *Scanner) Scan(ctx context.Context) (<-chan SourceFile, <-chan error) {
	go func() {
		defer close(s.files)
		defer close(s.errs)
		s.scanTree(ctx)
	}()
	return s.files, s.errs
}

// Discover runs a full scan and returns the files sorted by relative path
// together with any errors met along the way.
func Discover(ctx context.Context, cfg ScannerConfig) ([]SourceFile, []error) {
	files, errs := NewScanner(cfg).Scan(ctx)

	var out []SourceFile
	var scanErrs []error
	for files != nil || errs != nil {
		select {
		case f, ok := <-files:
			if !ok {
				files = nil
				continue
			}
			out = append(out, f)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			scanErrs = append(scanErrs, err)
		}
	}

	slices.SortFunc(out, func(a, b SourceFile) int { return strings.Compare(a.RelPath, b.RelPath) })
	return out, scanErrs
}

func (s *Scanner) scanTree(ctx context.Context) {
	workQueue := make(chan string, s.cfg.Workers*2)
	var outstanding sync.WaitGroup // directories queued but not yet processed

	var workerWg sync.WaitGroup
	for range s.cfg.Workers {
		workerWg.Add(1)
		go func() {
			defer workerWg.Done()
			for dir := range workQueue {
				for _, sub := range s.scanDir(ctx, dir) {
					outstanding.Add(1)
					// Enqueue from a separate goroutine: a worker blocked on a
					// full queue would otherwise stall the consumers.
					go func() { workQueue <- sub }()
				}
				outstanding.Done()
			}
		}()
	}

	outstanding.Add(1)
	workQueue <- s.cfg.SrcRoot

	outstanding.Wait()
	close(workQueue)
	workerWg.Wait()
}

// scanDir emits the files in dir and returns its subdirectories.
func (s *Scanner) scanDir(ctx context.Context, dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.sendErr(fmt.Errorf("readdir %s: %w", dir, err))
		return nil
	}

	var subdirs []string
	for _, entry := range entries {
		if ctx.Err() != nil {
			return subdirs
		}
		path := filepath.Join(dir, entry.Name())
		sub, err := s.processEntry(path, entry)
		if err != nil {
			s.sendErr(err)
			continue
		}
		if sub {
			subdirs = append(subdirs, path)
		}
	}
	return subdirs
}

// processEntry emits path if it is a file worth copying and reports
// whether it is a directory to descend into.
func (s *Scanner) processEntry(path string, entry fs.DirEntry) (bool, error) {
	rel, err := filepath.Rel(s.cfg.SrcRoot, path)
	if err != nil {
		return false, fmt.Errorf("rel path for %s: %w", path, err)
	}
	slashRel := filepath.ToSlash(rel)

	switch typ := entry.Type(); {
	case typ.IsDir():
		if slices.Contains(s.cfg.Prune, path) {
			s.log.Debug("pruned directory", "path", path)
			return false, nil
		}
		return s.cfg.Filter.Match(slashRel, true, 0), nil

	case typ&fs.ModeSymlink != 0:
		// Follow links to files the way a plain open would; never
		// descend through links to directories.
		info, err := os.Stat(path)
		if err != nil {
			s.log.Debug("skipping unresolvable symlink", "path", path, "error", err)
			return false, nil
		}
		if !info.Mode().IsRegular() {
			s.log.Debug("skipping symlink to non-regular file", "path", path)
			return false, nil
		}
		s.emit(path, rel, slashRel, info)
		return false, nil

	case typ.IsRegular():
		info, err := entry.Info()
		if err != nil {
			return false, fmt.Errorf("stat %s: %w", path, err)
		}
		s.emit(path, rel, slashRel, info)
		return false, nil

	default:
		s.log.Debug("skipping special file", "path", path, "mode", typ.String())
		return false, nil
	}
}

func (s *Scanner) emit(path, rel, slashRel string, info fs.FileInfo) {
	if !s.cfg.Filter.Match(slashRel, false, info.Size()) {
		return
	}
	s.files <- SourceFile{
		Path:    path,
		RelPath: rel,
		Size:    info.Size(),
		Mode:    info.Mode(),
		ModTime: info.ModTime(),
	}
}

func (s *Scanner) sendErr(err error) {
	s.errs <- err
}
