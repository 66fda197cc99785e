package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/bamsammich/extsort/internal/config"
	"github.com/bamsammich/extsort/internal/engine"
	"github.com/bamsammich/extsort/internal/event"
	"github.com/bamsammich/extsort/internal/filter"
	"github.com/bamsammich/extsort/internal/stats"
	"github.com/bamsammich/extsort/internal/ui"
)

var version = "dev"

func main() {
	stopSignals := handleSignals()
	code := run(os.Args[1:], os.Stdout, os.Stderr)
	stopSignals()
	os.Exit(code)
}

// handleSignals removes in-progress tmp files on SIGINT/SIGTERM and exits.
// A started batch is never cancelled cooperatively.
func handleSignals() func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigs:
			slog.Warn("interrupted, removing partial files", "signal", sig.String(), "pending", engine.PendingTmpFiles())
			engine.CleanupTmpFiles()
			os.Exit(130)
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

// filterFlag is a custom pflag.Value that preserves CLI ordering of
// --exclude and --include rules by appending to a shared filter.Chain.
type filterFlag struct {
	chain   *filter.Chain
	include bool
}

func (*filterFlag) String() string { return "" }
func (*filterFlag) Type() string   { return "string" }

func (f *filterFlag) Set(val string) error {
	if f.include {
		return f.chain.AddInclude(val)
	}
	return f.chain.AddExclude(val)
}

// options holds parsed flag values.
type options struct {
	collision  string
	suffix     string
	filterFile string
	minSize    string
	maxSize    string
	bwLimit    string
	logFile    string
	workers    int
	mirror     bool
	foldCase   bool
	verify     bool
	dryRun     bool
	strict     bool
	progress   bool
	buckets    bool
	verbose    bool
	quiet      bool
	version    bool
}

//nolint:revive // cognitive-complexity: CLI entry point wires every flag
func run(args []string, stdout, stderr io.Writer) int {
	var opts options
	chain := filter.NewChain()

	rootCmd := &cobra.Command{
		Use:   "extsort [flags] <source> <destination>",
		Short: "Sort a directory tree into per-extension folders",
		Long: `extsort copies every regular file below <source> into
<destination>/<extension>/, one folder per file extension. Files without
an extension go to <destination>/no_extension/. Name clashes get a numeric
suffix (report.txt, report_1.txt, ...). Sources are never modified.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.version {
				return nil
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.version {
				fmt.Fprintf(stdout, "extsort %s\n", version)
				return nil
			}
			return runSort(cmd, args[0], args[1], &opts, chain, stderr)
		},
	}
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	f := rootCmd.Flags()
	f.BoolVar(&opts.version, "version", false, "print version and exit")
	f.IntVarP(&opts.workers, "workers", "n", engine.DefaultWorkers, "maximum number of concurrent copies")
	f.BoolVar(&opts.mirror, "mirror", false, "keep the source directory structure below each extension folder")
	f.StringVar(&opts.collision, "collision", "suffix", "when a target name is taken: suffix, skip or overwrite")
	f.StringVar(&opts.suffix, "suffix", "last", "extension of multi-suffix names: last (tar.gz → gz) or chain (tar.gz)")
	f.BoolVar(&opts.foldCase, "fold-case", false, "lower-case extension folder names (JPG and jpg share a folder)")
	f.BoolVar(&opts.verify, "verify", false, "verify checksums after copy (BLAKE3)")
	f.BoolVar(&opts.dryRun, "dry-run", false, "show where files would go without writing")
	f.BoolVar(&opts.strict, "strict", false, "exit 1 if any file failed, 2 if the source is missing")
	f.BoolVar(&opts.progress, "progress", false, "show a progress bar")
	f.BoolVar(&opts.buckets, "buckets", false, "print a per-extension breakdown at the end")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress all output except warnings and errors")

	// Filter flags use a custom pflag.Value to preserve CLI ordering.
	f.Var(&filterFlag{chain: chain, include: false}, "exclude", "exclude files matching PATTERN (repeatable)")
	f.Var(&filterFlag{chain: chain, include: true}, "include", "include files matching PATTERN (repeatable)")
	f.StringVar(&opts.filterFile, "filter", "", "read filter rules from FILE")
	f.StringVar(&opts.minSize, "min-size", "", "skip files smaller than SIZE (e.g. 1M, 100K)")
	f.StringVar(&opts.maxSize, "max-size", "", "skip files larger than SIZE (e.g. 1G, 500M)")
	f.StringVar(&opts.bwLimit, "bwlimit", "", "bandwidth limit per second (e.g. 100M, 1G)")
	f.StringVar(&opts.logFile, "log", "", "also write a structured JSON log to FILE (rotated)")

	rootCmd.AddCommand(docsCmd)

	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

//nolint:gocyclo,revive // cyclomatic,cognitive-complexity: sequential setup of one run
func runSort(cmd *cobra.Command, src, dst string, opts *options, chain *filter.Chain, stderr io.Writer) error {
	cfg, cfgErr := config.Load()
	applyConfigDefaults(cmd.Flags(), cfg.Defaults, opts)

	logger, closeLog, err := newLogger(stderr, opts)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)
	if cfgErr != nil {
		logger.Warn("failed to load config", "error", cfgErr)
	}

	suffix, err := engine.ParseSuffixPolicy(opts.suffix)
	if err != nil {
		return err
	}
	collision, err := engine.ParseCollisionPolicy(opts.collision)
	if err != nil {
		return err
	}
	if opts.workers <= 0 {
		return fmt.Errorf("--workers must be positive, got %d", opts.workers)
	}

	if err := buildFilter(chain, opts, cfg.Filter); err != nil {
		return err
	}

	var bwLimit int64
	if opts.bwLimit != "" {
		bwLimit, err = filter.ParseSize(opts.bwLimit)
		if err != nil {
			return fmt.Errorf("invalid --bwlimit: %w", err)
		}
	}

	collector := stats.NewCollector()
	events := make(chan event.Event, 256)

	presenter := ui.NewPresenter(ui.Config{
		Writer:   stderr,
		Stats:    collector,
		IsTTY:    ui.IsTTY(os.Stderr.Fd()),
		Width:    ui.TermWidth(os.Stderr.Fd()),
		Progress: opts.progress && !opts.quiet,
	})

	engineCfg := engine.Config{
		Src:       src,
		Dst:       dst,
		Workers:   opts.workers,
		BWLimit:   bwLimit,
		Suffix:    suffix,
		Collision: collision,
		Mirror:    opts.mirror,
		FoldCase:  opts.foldCase,
		DryRun:    opts.dryRun,
		Verify:    opts.verify,
		Events:    events,
		Stats:     collector,
		Logger:    logger,
	}
	if !chain.Empty() {
		engineCfg.Filter = chain
	}

	logger.Debug("starting sort",
		"src", src,
		"dst", dst,
		"workers", opts.workers,
		"mirror", opts.mirror,
		"collision", collision.String(),
		"suffix", suffix.String(),
	)
	if opts.dryRun {
		logger.Info("dry run mode")
	}

	var presenterErr error
	var presenterWg sync.WaitGroup
	presenterWg.Add(1)
	go func() {
		defer presenterWg.Done()
		presenterErr = presenter.Run(events)
	}()

	result := engine.Run(context.Background(), engineCfg)
	close(events)
	presenterWg.Wait()
	if presenterErr != nil {
		logger.Debug("presenter", "error", presenterErr)
	}

	return finish(result, opts, stderr)
}

// finish prints the summary and maps the result to an exit code.
func finish(result engine.Result, opts *options, stderr io.Writer) error {
	switch {
	case errors.Is(result.Err, engine.ErrSourceNotFound):
		// Already logged by the engine; a missing source is a no-op.
		if opts.strict {
			return &exitError{code: 2}
		}
		return nil
	case result.Err != nil:
		if !errors.Is(result.Err, engine.ErrSourceNotDir) && !errors.Is(result.Err, engine.ErrDestination) {
			slog.Error("sort failed", "error", result.Err)
		}
		return &exitError{code: 2}
	}

	rep := result.Report()
	if !opts.quiet {
		if opts.buckets {
			fmt.Fprint(stderr, ui.BucketTable(result.Buckets()))
		}
		fmt.Fprintln(stderr, ui.CompletionSummary(rep, result.Stats))
	}
	if opts.strict && rep.Failed > 0 {
		return &exitError{code: 1}
	}
	return nil
}

func newLogger(stderr io.Writer, opts *options) (*slog.Logger, func(), error) {
	logLevel := slog.LevelInfo
	switch {
	case opts.verbose:
		logLevel = slog.LevelDebug
	case opts.quiet:
		logLevel = slog.LevelWarn
	}
	textHandler := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logLevel})
	if opts.logFile == "" {
		return slog.New(textHandler), func() {}, nil
	}

	logWriter := &lumberjack.Logger{
		Filename:   opts.logFile,
		MaxSize:    100, // megabytes
		MaxBackups: 3,
		Compress:   true,
	}
	// Probe the path now so a bad --log fails before any copying starts.
	if _, err := logWriter.Write(nil); err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	jsonHandler := slog.NewJSONHandler(logWriter, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(ui.NewMultiHandler(textHandler, jsonHandler))
	return logger, func() { _ = logWriter.Close() }, nil
}

func buildFilter(chain *filter.Chain, opts *options, fc config.FilterConfig) error {
	if opts.filterFile != "" {
		if err := chain.LoadFile(opts.filterFile); err != nil {
			return fmt.Errorf("load filter file: %w", err)
		}
	}
	for _, p := range fc.Exclude {
		if err := chain.AddExclude(p); err != nil {
			return fmt.Errorf("config exclude: %w", err)
		}
	}
	for _, p := range fc.Include {
		if err := chain.AddInclude(p); err != nil {
			return fmt.Errorf("config include: %w", err)
		}
	}

	minSize, maxSize := opts.minSize, opts.maxSize
	if minSize == "" && fc.MinSize != nil {
		minSize = *fc.MinSize
	}
	if maxSize == "" && fc.MaxSize != nil {
		maxSize = *fc.MaxSize
	}
	if minSize != "" {
		n, err := filter.ParseSize(minSize)
		if err != nil {
			return fmt.Errorf("invalid --min-size: %w", err)
		}
		chain.SetMinSize(n)
	}
	if maxSize != "" {
		n, err := filter.ParseSize(maxSize)
		if err != nil {
			return fmt.Errorf("invalid --max-size: %w", err)
		}
		chain.SetMaxSize(n)
	}
	return nil
}

// applyConfigDefaults applies config file defaults for flags not explicitly set on the CLI.
func applyConfigDefaults(flags *pflag.FlagSet, d config.DefaultsConfig, opts *options) {
	setInt := func(name string, dst *int, v *int) {
		if v != nil && !flags.Changed(name) {
			*dst = *v
		}
	}
	setBool := func(name string, dst *bool, v *bool) {
		if v != nil && !flags.Changed(name) {
			*dst = *v
		}
	}
	setString := func(name string, dst *string, v *string) {
		if v != nil && !flags.Changed(name) {
			*dst = *v
		}
	}

	setInt("workers", &opts.workers, d.Workers)
	setBool("mirror", &opts.mirror, d.Mirror)
	setString("collision", &opts.collision, d.Collision)
	setString("suffix", &opts.suffix, d.Suffix)
	setBool("fold-case", &opts.foldCase, d.FoldCase)
	setBool("verify", &opts.verify, d.Verify)
	setBool("strict", &opts.strict, d.Strict)
	setString("bwlimit", &opts.bwLimit, d.BWLimit)
	setBool("progress", &opts.progress, d.Progress)
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
