package ui

import (
	"io"
	"time"

	"github.com/bamsammich/extsort/internal/event"
	"github.com/bamsammich/extsort/internal/stats"
)

// Presenter consumes engine events and displays progress.
type Presenter interface {
	// Run consumes events until the channel closes. Blocks until done.
	Run(events <-chan event.Event) error
}

// Config configures a Presenter.
type Config struct {
	Writer   io.Writer
	Stats    stats.Reader
	Interval time.Duration // plain presenter progress cadence
	Width    int           // terminal columns, for the bar
	IsTTY    bool
	Progress bool
}

// NewPresenter creates the appropriate presenter based on configuration.
// Without Progress nothing is drawn: the per-file log lines are the only
// running output.
//
//nolint:ireturn // factory function returns interface by design
func NewPresenter(cfg Config) Presenter {
	if !cfg.Progress {
		return quietPresenter{}
	}
	if cfg.IsTTY {
		return newBarPresenter(cfg.Writer, cfg.Width)
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &plainPresenter{w: cfg.Writer, stats: cfg.Stats, interval: interval}
}
