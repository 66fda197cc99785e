package ui

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/bamsammich/extsort/internal/engine"
	"github.com/bamsammich/extsort/internal/stats"
)

var (
	okStyle   = color.New(color.FgGreen, color.Bold)
	failStyle = color.New(color.FgRed, color.Bold)
	dimStyle  = color.New(color.Faint)
)

// CompletionSummary builds the final summary line.
// Format: done ✓  files 120  copied 118  skipped 1  failed 1  size 2.1 GiB  avg 641 MiB/s  time 3s
func CompletionSummary(rep engine.Report, snap stats.Snapshot) string {
	avgSpeed := 0.0
	if snap.Elapsed.Seconds() > 0 {
		avgSpeed = float64(rep.Bytes) / snap.Elapsed.Seconds()
	}

	head := okStyle.Sprint("done ✓")
	if rep.Failed > 0 {
		head = failStyle.Sprint("done ✗")
	}
	if rep.Planned > 0 {
		return fmt.Sprintf("%s  files %s  planned %s  %s",
			dimStyle.Sprint("dry run"),
			FormatCount(int64(rep.Attempted)),
			FormatCount(int64(rep.Planned)),
			dimStyle.Sprint("nothing written"),
		)
	}

	line := fmt.Sprintf("%s  files %s  copied %s  skipped %s  failed %s  size %s  avg %s  time %s",
		head,
		FormatCount(int64(rep.Attempted)),
		FormatCount(int64(rep.Copied)),
		FormatCount(int64(rep.Skipped)),
		failedCount(rep.Failed),
		FormatBytes(rep.Bytes),
		FormatRate(avgSpeed),
		FormatDuration(snap.Elapsed),
	)
	if snap.FilesVerified > 0 || snap.FilesVerifyFailed > 0 {
		line += fmt.Sprintf("  verified %s", FormatCount(snap.FilesVerified))
	}
	return line
}

func failedCount(n int) string {
	s := FormatCount(int64(n))
	if n > 0 {
		return failStyle.Sprint(s)
	}
	return s
}
