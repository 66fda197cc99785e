package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/time/rate"

	"github.com/bamsammich/extsort/internal/event"
	"github.com/bamsammich/extsort/internal/filter"
	"github.com/bamsammich/extsort/internal/stats"
)

// DefaultWorkers is the number of copies allowed in flight at once.
const DefaultWorkers = 100

var (
	// ErrSourceNotFound means the source root does not exist.
	ErrSourceNotFound = errors.New("source does not exist")
	// ErrSourceNotDir means the source root is not a directory.
	ErrSourceNotDir = errors.New("source is not a directory")
	// ErrDestination means the destination root could not be created.
	ErrDestination = errors.New("cannot create destination")
	// ErrDestinationIsSource means both roots name the same directory.
	ErrDestinationIsSource = fmt.Errorf("%w: destination is the source root", ErrDestination)
)

// Config describes a sort operation.
type Config struct {
	Filter      *filter.Chain
	Events      chan<- event.Event
	Stats       *stats.Collector
	Logger      *slog.Logger
	Src         string
	Dst         string
	Workers     int
	ScanWorkers int
	BWLimit     int64 // bytes per second, 0 = unlimited
	Suffix      SuffixPolicy
	Collision   CollisionPolicy
	Mirror      bool
	FoldCase    bool
	DryRun      bool
	Verify      bool
}

// Result is the outcome of a sort operation. Files is sorted by source
// relative path.
type Result struct {
	Err        error
	Files      []FileResult
	ScanErrors []error
	Verify     *VerifyResult
	Stats      stats.Snapshot
}

// Report aggregates per-file outcomes.
type Report struct {
	Attempted    int
	Copied       int
	Skipped      int
	Failed       int
	Planned      int
	VerifyFailed int
	Bytes        int64
}

// Report tallies r.Files.
func (r Result) Report() Report {
	rep := Report{Attempted: len(r.Files)}
	for _, f := range r.Files {
		switch f.Outcome {
		case Copied:
			rep.Copied++
			rep.Bytes += f.Bytes
		case Skipped:
			rep.Skipped++
		case Failed:
			rep.Failed++
		case Planned:
			rep.Planned++
		}
	}
	if r.Verify != nil {
		rep.VerifyFailed = int(r.Verify.Failed)
	}
	return rep
}

// BucketStat summarizes what landed in one bucket.
type BucketStat struct {
	Name   string
	Files  int
	Bytes  int64
	Failed int
}

// Buckets groups r.Files by bucket, sorted by name. Skipped files are not
// counted; dry-run plans count as files with their source size.
func (r Result) Buckets() []BucketStat {
	byName := make(map[string]*BucketStat)
	for _, f := range r.Files {
		if f.Bucket == "" || f.Outcome == Skipped {
			continue
		}
		b := byName[f.Bucket]
		if b == nil {
			b = &BucketStat{Name: f.Bucket}
			byName[f.Bucket] = b
		}
		switch f.Outcome {
		case Copied:
			b.Files++
			b.Bytes += f.Bytes
		case Planned:
			b.Files++
			b.Bytes += f.File.Size
		case Failed:
			b.Failed++
		}
	}

	out := make([]BucketStat, 0, len(byName))
	for _, b := range byName {
		out = append(out, *b)
	}
	slices.SortFunc(out, func(a, b BucketStat) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Run sorts cfg.Src into cfg.Dst, blocking until every discovered file has
// reached a terminal outcome. Per-file failures are reported in
// Result.Files; Result.Err is set only when the run could not start.
func Run(ctx context.Context, cfg Config) Result {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	collector := cfg.Stats
	if collector == nil {
		collector = stats.NewCollector()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	src, dst, err := resolveRoots(cfg.Src, cfg.Dst)
	if err != nil {
		log.Error("cannot start", "src", cfg.Src, "error", err)
		return Result{Err: err, Stats: collector.Snapshot()}
	}

	if !cfg.DryRun {
		if err := os.MkdirAll(dst, 0o755); err != nil {
			err = fmt.Errorf("%w %s: %w", ErrDestination, dst, err)
			log.Error("cannot start", "dst", dst, "error", err)
			return Result{Err: err, Stats: collector.Snapshot()}
		}
	}

	if !cfg.DryRun {
		lock, err := lockDestination(dst, log)
		if err != nil {
			log.Error("cannot start", "dst", dst, "error", err)
			return Result{Err: err, Stats: collector.Snapshot()}
		}
		defer lock.unlock()
	}

	scanCfg := ScannerConfig{
		SrcRoot: src,
		Workers: cfg.ScanWorkers,
		Filter:  cfg.Filter,
		Logger:  log,
	}
	if within(dst, src) {
		log.Debug("destination inside source, excluding it from the scan", "dst", dst)
		scanCfg.Prune = []string{dst}
	}

	event.Emit(cfg.Events, event.Event{Type: event.ScanStarted, Path: src})
	files, scanErrs := Discover(ctx, scanCfg)
	for _, err := range scanErrs {
		log.Warn("scan error", "error", err)
	}

	var totalBytes int64
	for _, f := range files {
		totalBytes += f.Size
	}
	collector.SetTotals(int64(len(files)), totalBytes)
	event.Emit(cfg.Events, event.Event{Type: event.ScanComplete, Total: int64(len(files)), TotalSize: totalBytes})

	layout := Layout{Root: dst, Suffix: cfg.Suffix, Mirror: cfg.Mirror, FoldCase: cfg.FoldCase}
	reserver := NewReserver(layout, cfg.Collision)

	var limiter *rate.Limiter
	if cfg.BWLimit > 0 {
		limiter = NewBWLimiter(cfg.BWLimit)
	}

	wp, err := NewWorkerPool(WorkerConfig{
		NumWorkers: workers,
		Reserver:   reserver,
		Limiter:    limiter,
		Stats:      collector,
		Events:     cfg.Events,
		Logger:     log,
		DryRun:     cfg.DryRun,
	})
	if err != nil {
		return Result{Err: fmt.Errorf("create worker pool: %w", err), Stats: collector.Snapshot()}
	}
	defer wp.Close()

	plans := make(chan Plan, workers)
	resultCh := make(chan FileResult, workers)

	// Planning is sequential in discovery order; collision numbering
	// depends on it.
	go func() {
		defer close(plans)
		for _, f := range files {
			p, err := reserver.Plan(f)
			if err != nil {
				res := FileResult{File: f, Outcome: Failed, Err: fmt.Errorf("plan target: %w", err)}
				collector.AddFilesFailed(1)
				log.Error("copy failed", "src", f.Path, "error", res.Err)
				event.Emit(cfg.Events, event.Event{Type: event.FileFailed, Path: f.RelPath, Size: f.Size, Error: res.Err})
				resultCh <- res
				continue
			}
			plans <- p
		}
	}()

	go func() {
		defer close(resultCh)
		wp.Run(ctx, plans, resultCh)
	}()

	results := make([]FileResult, 0, len(files))
	for r := range resultCh {
		results = append(results, r)
	}
	slices.SortFunc(results, func(a, b FileResult) int { return strings.Compare(a.File.RelPath, b.File.RelPath) })

	res := Result{Files: results, ScanErrors: scanErrs}
	if cfg.Verify && !cfg.DryRun {
		vr := Verify(ctx, VerifyConfig{Workers: min(workers, 16), Stats: collector, Events: cfg.Events}, results)
		for _, ve := range vr.Errors {
			log.Error("verify failed", "src", ve.Src, "dst", ve.Dst, "error", ve.Err)
		}
		res.Verify = &vr
	}
	res.Stats = collector.Snapshot()
	return res
}

// resolveRoots validates the source root and returns both roots as clean
// absolute paths.
func resolveRoots(src, dst string) (string, string, error) {
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return "", "", fmt.Errorf("source %s: %w", src, err)
	}
	info, err := os.Stat(absSrc)
	if errors.Is(err, fs.ErrNotExist) {
		return "", "", fmt.Errorf("%w: %s", ErrSourceNotFound, src)
	}
	if err != nil {
		return "", "", fmt.Errorf("source %s: %w", src, err)
	}
	if !info.IsDir() {
		return "", "", fmt.Errorf("%w: %s", ErrSourceNotDir, src)
	}
	absDst, err := filepath.Abs(dst)
	if err != nil {
		return "", "", fmt.Errorf("destination %s: %w", dst, err)
	}
	if absDst == absSrc {
		return "", "", fmt.Errorf("%w: %s", ErrDestinationIsSource, dst)
	}
	return absSrc, absDst, nil
}

// within reports whether path lies strictly inside root.
func within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
