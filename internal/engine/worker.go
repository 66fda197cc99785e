package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/bamsammich/extsort/internal/event"
	"github.com/bamsammich/extsort/internal/platform"
	"github.com/bamsammich/extsort/internal/stats"
)

// maxTmpBase keeps tmp names under NAME_MAX for long source names.
const maxTmpBase = 200

// WorkerConfig controls worker behavior.
type WorkerConfig struct {
	Reserver   *Reserver
	Limiter    *rate.Limiter // nil: unthrottled
	Stats      *stats.Collector
	Events     chan<- event.Event
	Logger     *slog.Logger
	NumWorkers int
	DryRun     bool
}

// WorkerPool runs a fixed number of copy workers. The worker count is the
// concurrency gate: no more than NumWorkers copies are ever in flight.
type WorkerPool struct {
	log *slog.Logger
	cfg WorkerConfig
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(cfg WorkerConfig) (*WorkerPool, error) {
	if cfg.NumWorkers <= 0 {
		return nil, fmt.Errorf("worker count must be positive, got %d", cfg.NumWorkers)
	}
	if cfg.Reserver == nil {
		return nil, errors.New("worker pool needs a reserver")
	}
	if cfg.Stats == nil {
		cfg.Stats = stats.NewCollector()
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &WorkerPool{cfg: cfg, log: log}, nil
}

// Run starts workers that consume plans and blocks until the plans channel
// is closed and drained. Exactly one result is sent per plan. A failing
// file never stops its siblings.
func (wp *WorkerPool) Run(ctx context.Context, plans <-chan Plan, results chan<- FileResult) {
	done := make(chan struct{})
	for id := range wp.cfg.NumWorkers {
		go func() {
			defer func() { done <- struct{}{} }()
			for p := range plans {
				results <- wp.process(ctx, id, p)
			}
		}()
	}
	for range wp.cfg.NumWorkers {
		<-done
	}
}

// Close removes any tmp files a crashed copy left registered.
func (wp *WorkerPool) Close() {
	CleanupTmpFiles()
}

func (wp *WorkerPool) process(ctx context.Context, workerID int, p Plan) FileResult {
	wp.cfg.Stats.Enter()
	defer wp.cfg.Stats.Leave()

	res := wp.copyFile(ctx, &p)
	wp.report(workerID, res)
	return res
}

// report records res in the stats, the event stream and the log: one line
// per file.
func (wp *WorkerPool) report(workerID int, res FileResult) {
	ev := event.Event{
		Path:     res.File.RelPath,
		Target:   res.Target,
		Size:     res.File.Size,
		WorkerID: workerID,
		Error:    res.Err,
	}
	switch res.Outcome {
	case Copied:
		wp.cfg.Stats.AddFilesCopied(1)
		wp.cfg.Stats.AddBytesCopied(res.Bytes)
		ev.Type = event.FileCopied
		wp.log.Info("copied", "src", res.File.Path, "dst", res.Target)
	case Planned:
		ev.Type = event.FilePlanned
		wp.log.Info("would copy", "src", res.File.Path, "dst", res.Target)
	case Skipped:
		wp.cfg.Stats.AddFilesSkipped(1)
		ev.Type = event.FileSkipped
		wp.log.Info("skipped", "src", res.File.Path, "dst", res.Target, "reason", "target exists")
	case Failed:
		wp.cfg.Stats.AddFilesFailed(1)
		ev.Type = event.FileFailed
		wp.log.Error("copy failed", "src", res.File.Path, "error", res.Err)
	}
	event.Emit(wp.cfg.Events, ev)
}

func (wp *WorkerPool) copyFile(ctx context.Context, p *Plan) FileResult {
	res := FileResult{File: p.File, Target: p.Target, Bucket: p.Bucket}

	if p.skip {
		res.Outcome = Skipped
		return res
	}
	if wp.cfg.DryRun {
		res.Outcome = Planned
		return res
	}

	created, err := wp.cfg.Reserver.EnsureDir(p.TargetDir)
	if err != nil {
		return failed(res, err)
	}
	if created {
		wp.cfg.Stats.AddDirsCreated(1)
		event.Emit(wp.cfg.Events, event.Event{Type: event.DirCreated, Target: p.TargetDir})
	}

	n, method, err := wp.writeAndPlace(ctx, p)
	res.Target = p.Target
	res.Method = method
	if errors.Is(err, errTargetTaken) {
		res.Outcome = Skipped
		return res
	}
	if err != nil {
		return failed(res, err)
	}
	res.Bytes = n
	res.Outcome = Copied
	return res
}

func failed(res FileResult, err error) FileResult {
	res.Outcome = Failed
	res.Err = err
	res.Target = ""
	return res
}

// writeAndPlace copies p.File into a tmp file beside the target, applies
// the source metadata, then commits it under its final name.
func (wp *WorkerPool) writeAndPlace(ctx context.Context, p *Plan) (int64, platform.CopyMethod, error) {
	src, err := os.Open(p.File.Path)
	if err != nil {
		return 0, 0, fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return 0, 0, fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return 0, 0, fmt.Errorf("%s is no longer a regular file", p.File.Path)
	}

	tmpPath := tmpPathFor(p.TargetDir, p.File.Name())
	RegisterTmp(tmpPath)
	defer func() {
		DeregisterTmp(tmpPath)
		_ = os.Remove(tmpPath) // no-op once committed
	}()

	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return 0, 0, fmt.Errorf("create tmp: %w", err)
	}

	result, err := wp.copyData(ctx, src, tmp, info.Size())
	if err != nil {
		tmp.Close()
		return result.BytesWritten, result.Method, fmt.Errorf("copy data: %w", err)
	}

	if err := setMetadata(p.File.Path, tmp, info); err != nil {
		tmp.Close()
		return result.BytesWritten, result.Method, err
	}

	if err := tmp.Close(); err != nil {
		return result.BytesWritten, result.Method, fmt.Errorf("close tmp: %w", err)
	}

	if err := wp.cfg.Reserver.Commit(p, tmpPath); err != nil {
		return result.BytesWritten, result.Method, err
	}
	return result.BytesWritten, result.Method, nil
}

func (wp *WorkerPool) copyData(ctx context.Context, src, dst *os.File, size int64) (platform.CopyResult, error) {
	if wp.cfg.Limiter == nil {
		return platform.CopyFile(platform.CopyFileParams{Src: src, Dst: dst, Size: size})
	}
	n, err := io.Copy(dst, newRateLimitedReader(ctx, src, wp.cfg.Limiter))
	return platform.CopyResult{BytesWritten: n, Method: platform.Stream}, err
}

// setMetadata carries permission bits, timestamps and extended attributes
// over to the open tmp file.
func setMetadata(srcPath string, dst *os.File, info os.FileInfo) error {
	mode := info.Mode()
	if err := dst.Chmod(mode.Perm() | mode&(os.ModeSetuid|os.ModeSetgid|os.ModeSticky)); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}

	rawFd := int(dst.Fd()) //nolint:gosec // G115: fd values are small non-negative integers
	copyXattrs(srcPath, rawFd)
	if err := setFileTimes(rawFd, dst.Name(), atimeOf(info), info.ModTime()); err != nil {
		return err
	}
	return nil
}

func tmpPathFor(dir, name string) string {
	if len(name) > maxTmpBase {
		name = name[:maxTmpBase]
	}
	return filepath.Join(dir, fmt.Sprintf(".%s.%s.extsort-tmp", name, uuid.New().String()[:8]))
}
