package engine

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bamsammich/extsort/internal/event"
	"github.com/bamsammich/extsort/internal/stats"
)

// VerifyConfig controls the post-copy verification pass.
type VerifyConfig struct {
	Events  chan<- event.Event
	Stats   stats.Writer
	Workers int
}

// VerifyResult holds the outcome of a verification pass.
type VerifyResult struct {
	Errors   []VerifyError
	Verified int64
	Failed   int64
}

// VerifyError records a single checksum mismatch or unreadable side.
type VerifyError struct {
	Err     error
	Src     string
	Dst     string
	SrcHash string
	DstHash string
}

// Verify compares BLAKE3 checksums of source and destination for every
// copied result. Mismatching entries in results are turned into failures
// in place. At most cfg.Workers files are hashed at once.
func Verify(ctx context.Context, cfg VerifyConfig, results []FileResult) VerifyResult {
	event.Emit(cfg.Events, event.Event{Type: event.VerifyStarted})

	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}

	var mu sync.Mutex
	var out VerifyResult
	var group errgroup.Group
	group.SetLimit(workers)

	for i := range results {
		if ctx.Err() != nil {
			break
		}
		if results[i].Outcome != Copied {
			continue
		}
		r := &results[i]
		group.Go(func() error {
			ve, ok := verifyOne(r.File.Path, r.Target)

			mu.Lock()
			if ok {
				out.Verified++
			} else {
				out.Failed++
				out.Errors = append(out.Errors, ve)
				r.Outcome = Failed
				r.Err = ve.Err
			}
			mu.Unlock()

			if ok {
				if cfg.Stats != nil {
					cfg.Stats.AddFilesVerified(1)
				}
				event.Emit(cfg.Events, event.Event{Type: event.VerifyOK, Path: r.File.RelPath, Target: r.Target})
				return nil
			}
			if cfg.Stats != nil {
				cfg.Stats.AddFilesVerifyFailed(1)
			}
			event.Emit(cfg.Events, event.Event{
				Type:   event.VerifyFailed,
				Path:   r.File.RelPath,
				Target: r.Target,
				Error:  ve.Err,
			})
			return nil
		})
	}
	_ = group.Wait() // per-file failures are recorded, never returned

	return out
}

func verifyOne(src, dst string) (VerifyError, bool) {
	ve := VerifyError{Src: src, Dst: dst}

	srcHash, err := HashFile(src)
	if err != nil {
		ve.SrcHash, ve.DstHash, ve.Err = "error", "n/a", err
		return ve, false
	}
	ve.SrcHash = srcHash

	dstHash, err := HashFile(dst)
	if err != nil {
		ve.DstHash, ve.Err = "error", err
		return ve, false
	}
	ve.DstHash = dstHash

	if srcHash != dstHash {
		ve.Err = &ChecksumError{Path: dst, Want: srcHash, Got: dstHash}
		return ve, false
	}
	return ve, true
}

// ChecksumError reports a destination whose content differs from its source.
type ChecksumError struct {
	Path string
	Want string
	Got  string
}

func (e *ChecksumError) Error() string {
	return "checksum mismatch for " + e.Path + ": want " + e.Want + ", got " + e.Got
}
