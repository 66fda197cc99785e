package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/bamsammich/extsort/internal/event"
	"github.com/bamsammich/extsort/internal/stats"
)

// plainPresenter prints a progress line at a fixed interval. It is used
// when progress was requested but the output is not a terminal.
type plainPresenter struct {
	w        io.Writer
	stats    stats.Reader
	interval time.Duration
	total    int64
	done     int64
}

func (p *plainPresenter) Run(events <-chan event.Event) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.handleEvent(ev)
		case <-ticker.C:
			p.printProgress()
		}
	}
}

func (p *plainPresenter) handleEvent(ev event.Event) {
	switch ev.Type {
	case event.ScanComplete:
		p.total = ev.Total
		fmt.Fprintf(p.w, "found %s files, %s\n", FormatCount(ev.Total), FormatBytes(ev.TotalSize))
	case event.FileCopied, event.FileFailed, event.FileSkipped, event.FilePlanned:
		p.done++
	case event.VerifyStarted:
		fmt.Fprintln(p.w, "verifying...")
	case event.VerifyFailed:
		fmt.Fprintf(p.w, "MISMATCH: %s\n", ev.Target)
	}
}

func (p *plainPresenter) printProgress() {
	if p.total <= 0 {
		return
	}
	line := fmt.Sprintf("progress: %.0f%% %s/%s files",
		float64(p.done)/float64(p.total)*100,
		FormatCount(p.done), FormatCount(p.total),
	)
	if p.stats != nil {
		snap := p.stats.Snapshot()
		line += fmt.Sprintf(" %s copied", FormatBytes(snap.BytesCopied))
		if secs := snap.Elapsed.Seconds(); secs > 0 {
			line += " " + FormatRate(float64(snap.BytesCopied)/secs)
		}
	}
	fmt.Fprintln(p.w, line)
}
