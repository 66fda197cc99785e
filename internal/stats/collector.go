package stats

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Reader is the read side of a Collector, used by presenters.
type Reader interface {
	Snapshot() Snapshot
}

// Writer is the write side of a Collector, used by the engine.
type Writer interface {
	AddFilesCopied(n int64)
	AddFilesFailed(n int64)
	AddFilesSkipped(n int64)
	AddBytesCopied(n int64)
	AddDirsCreated(n int64)
	AddFilesVerified(n int64)
	AddFilesVerifyFailed(n int64)
}

// Collector tracks copy statistics using lock-free atomic counters.
type Collector struct {
	startTime         time.Time
	filesTotal        atomic.Int64
	bytesTotal        atomic.Int64
	filesCopied       atomic.Int64
	filesFailed       atomic.Int64
	filesSkipped      atomic.Int64
	bytesCopied       atomic.Int64
	dirsCreated       atomic.Int64
	filesVerified     atomic.Int64
	filesVerifyFailed atomic.Int64
	inFlight          atomic.Int64
	peakInFlight      atomic.Int64
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// SetTotals records discovery totals (called once when planning completes).
func (c *Collector) SetTotals(files, bytes int64) {
	c.filesTotal.Store(files)
	c.bytesTotal.Store(bytes)
}

func (c *Collector) AddFilesCopied(n int64)       { c.filesCopied.Add(n) }
func (c *Collector) AddFilesFailed(n int64)       { c.filesFailed.Add(n) }
func (c *Collector) AddFilesSkipped(n int64)      { c.filesSkipped.Add(n) }
func (c *Collector) AddBytesCopied(n int64)       { c.bytesCopied.Add(n) }
func (c *Collector) AddDirsCreated(n int64)       { c.dirsCreated.Add(n) }
func (c *Collector) AddFilesVerified(n int64)     { c.filesVerified.Add(n) }
func (c *Collector) AddFilesVerifyFailed(n int64) { c.filesVerifyFailed.Add(n) }

// Enter marks one copy as in flight and raises the peak if needed.
func (c *Collector) Enter() {
	cur := c.inFlight.Add(1)
	for {
		peak := c.peakInFlight.Load()
		if cur <= peak || c.peakInFlight.CompareAndSwap(peak, cur) {
			return
		}
	}
}

// Leave marks one in-flight copy as finished.
func (c *Collector) Leave() { c.inFlight.Add(-1) }

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	FilesTotal        int64
	BytesTotal        int64
	FilesCopied       int64
	FilesFailed       int64
	FilesSkipped      int64
	BytesCopied       int64
	DirsCreated       int64
	FilesVerified     int64
	FilesVerifyFailed int64
	InFlight          int64
	PeakInFlight      int64
	Elapsed           time.Duration
}

// Snapshot returns a point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		FilesTotal:        c.filesTotal.Load(),
		BytesTotal:        c.bytesTotal.Load(),
		FilesCopied:       c.filesCopied.Load(),
		FilesFailed:       c.filesFailed.Load(),
		FilesSkipped:      c.filesSkipped.Load(),
		BytesCopied:       c.bytesCopied.Load(),
		DirsCreated:       c.dirsCreated.Load(),
		FilesVerified:     c.filesVerified.Load(),
		FilesVerifyFailed: c.filesVerifyFailed.Load(),
		InFlight:          c.inFlight.Load(),
		PeakInFlight:      c.peakInFlight.Load(),
		Elapsed:           c.Elapsed(),
	}
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	if c.startTime.IsZero() {
		return 0
	}
	return time.Since(c.startTime)
}

// Attempted is the number of files that reached a terminal outcome.
func (s Snapshot) Attempted() int64 {
	return s.FilesCopied + s.FilesFailed + s.FilesSkipped
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"total=%d copied=%d failed=%d skipped=%d bytes=%d dirs=%d peak=%d",
		s.FilesTotal, s.FilesCopied, s.FilesFailed, s.FilesSkipped,
		s.BytesCopied, s.DirsCreated, s.PeakInFlight,
	)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	if b < 0 {
		return "-" + humanize.IBytes(uint64(-b))
	}
	return humanize.IBytes(uint64(b))
}
