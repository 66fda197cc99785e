package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/gofrs/flock"
)

// destLock serializes runs writing to the same destination root. The lock
// file lives in the temp dir so the destination only ever holds sorted
// files.
type destLock struct {
	fl *flock.Flock
}

func destLockPath(dst string) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("extsort-%016x.lock", xxhash.Sum64String(dst)))
}

// lockDestination takes the run lock for dst, waiting for a concurrent run
// to finish if needed.
func lockDestination(dst string, log *slog.Logger) (*destLock, error) {
	fl := flock.New(destLockPath(dst))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", fl.Path(), err)
	}
	if !ok {
		log.Warn("another run is writing to the destination, waiting", "dst", dst, "lock", fl.Path())
		if err := fl.Lock(); err != nil {
			return nil, fmt.Errorf("lock %s: %w", fl.Path(), err)
		}
	}
	return &destLock{fl: fl}, nil
}

func (l *destLock) unlock() {
	_ = l.fl.Unlock()
}
