package ui

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/bamsammich/extsort/internal/event"
)

const barThrottle = 50 * time.Millisecond

// barPresenter draws a progress bar over the file count. The bar is
// created on ScanComplete; a spinner stands in while discovery runs.
type barPresenter struct {
	w     io.Writer
	bar   *progressbar.ProgressBar
	width int
}

func newBarPresenter(w io.Writer, termWidth int) *barPresenter {
	return &barPresenter{w: w, width: min(max(termWidth/3, 10), 40)}
}

func (p *barPresenter) options() []progressbar.Option {
	return []progressbar.Option{
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionThrottle(barThrottle),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(p.width),
	}
}

func (p *barPresenter) Run(events <-chan event.Event) error {
	p.bar = progressbar.NewOptions(-1, append(p.options(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetDescription("scanning"),
	)...)

	for ev := range events {
		p.handleEvent(ev)
	}
	return p.bar.Finish()
}

func (p *barPresenter) handleEvent(ev event.Event) {
	switch ev.Type {
	case event.ScanComplete:
		_ = p.bar.Finish()
		p.bar = progressbar.NewOptions64(ev.Total, append(p.options(),
			progressbar.OptionSetDescription("sorting"),
		)...)
	case event.FileCopied, event.FileFailed, event.FileSkipped, event.FilePlanned:
		_ = p.bar.Add(1)
	case event.VerifyStarted:
		p.bar.Describe("verifying")
	}
}
