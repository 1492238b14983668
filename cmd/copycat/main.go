package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bamsammich/copycat/internal/config"
	"github.com/bamsammich/copycat/internal/copyflags"
	"github.com/bamsammich/copycat/internal/engine"
	"github.com/bamsammich/copycat/internal/event"
	"github.com/bamsammich/copycat/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

var (
	_ pflag.Value = strategyFlag{}
	_ pflag.Value = levelFlag{}
)

// strategyFlag is a pflag.Value accepting none, exists or date.
type strategyFlag struct {
	s *engine.Strategy
}

func (f strategyFlag) String() string {
	if f.s == nil {
		return engine.StrategyDate.String()
	}
	return f.s.String()
}

func (strategyFlag) Type() string { return "strategy" }

func (f strategyFlag) Set(val string) error {
	s, err := engine.ParseStrategy(val)
	if err != nil {
		return err
	}
	*f.s = s
	return nil
}

// levelFlag is a pflag.Value accepting info, debug or off.
type levelFlag struct {
	name *string
}

var levelNames = []string{"info", "debug", "off"}

func (f levelFlag) String() string {
	if f.name == nil {
		return "info"
	}
	return *f.name
}

func (levelFlag) Type() string { return "level" }

func (f levelFlag) Set(val string) error {
	val = strings.ToLower(strings.TrimSpace(val))
	for _, n := range levelNames {
		if n == val {
			*f.name = val
			return nil
		}
	}
	return fmt.Errorf("unknown level %q (use %s)", val, strings.Join(levelNames, ", "))
}

// options holds the parsed command line.
type options struct {
	threads         int
	comparison      engine.Strategy
	followSymlinks  bool
	disableMetadata bool
	level           string
	sizeAware       bool
	mtimeWindow     time.Duration
	bwLimit         string
	verify          bool
	feed            bool
	logFile         string
	copyFlags       string
	showVersion     bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{comparison: engine.StrategyDate, level: "info"}

	rootCmd := &cobra.Command{
		Use:   "copycat [flags] <source> <destination>",
		Short: "Parallel recursive directory copy",
		Long: `Copy the directory tree at <source> onto <destination> using a pool of
worker threads. Existing destination files are skipped or overwritten
according to the comparison strategy:

  none    overwrite every file
  exists  skip every file that already exists
  date    skip files whose modification times match (default)`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				return nil
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				fmt.Fprintf(stdout, "copycat %s\n", version)
				return nil
			}
			return runCopy(cmd, opts, args[0], args[1], stdout, stderr)
		},
	}

	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	f := rootCmd.Flags()
	f.BoolVar(&opts.showVersion, "version", false, "print version and exit")
	f.IntVarP(&opts.threads, "threads", "t", 0, "number of worker threads (default: number of CPUs)")
	f.BoolVarP(&opts.followSymlinks, "follow-symlinks", "f", false, "follow symbolic links instead of ignoring them")
	f.VarP(strategyFlag{s: &opts.comparison}, "comparison-strategy", "s", "how to treat existing files: none, exists or date")
	f.BoolVar(&opts.disableMetadata, "disable-copy-metadata", false, "do not copy access and modification times")
	f.VarP(levelFlag{name: &opts.level}, "level", "l", "log level: info, debug or off")
	f.BoolVar(&opts.sizeAware, "size-aware", false, "rewrite same-size files in place instead of replacing them")
	f.DurationVar(&opts.mtimeWindow, "mtime-window", 0, "treat modification times within this window as equal (e.g. 2s)")
	f.StringVar(&opts.bwLimit, "bwlimit", "", "bandwidth limit (e.g. 100MB, 1GiB)")
	f.BoolVar(&opts.verify, "verify", false, "verify copied files with BLAKE3 after the copy")
	f.BoolVar(&opts.feed, "feed", false, "print one line per file to stdout")
	f.StringVar(&opts.logFile, "log", "", "write structured JSON log to FILE")
	f.StringVar(&opts.copyFlags, "flags", "", "copy flags as a |-separated list (e.g. overwrite|follow_symlinks)")
	rootCmd.MarkFlagsMutuallyExclusive("flags", "comparison-strategy")
	rootCmd.MarkFlagsMutuallyExclusive("flags", "follow-symlinks")

	rootCmd.AddCommand(newDocsCmd())
	rootCmd.AddCommand(newConfigCmd(stdout))

	return rootCmd
}

func run(args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd(stdout, stderr)
	rootCmd.SetArgs(args)

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

//nolint:revive // cognitive-complexity: validation, logging setup and presenter wiring
func runCopy(cmd *cobra.Command, opts *options, src, dst string, stdout, stderr io.Writer) error {
	// Load optional config file.
	fileCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config %s: %w", config.Path(), err)
	}
	// Apply config defaults for flags not explicitly set on CLI.
	if err := applyConfigDefaults(cmd, fileCfg.Defaults, opts); err != nil {
		return fmt.Errorf("config %s: %w", config.Path(), err)
	}

	if cmd.Flags().Changed("flags") {
		fl, err := copyflags.Parse(opts.copyFlags)
		if err != nil {
			return fmt.Errorf("invalid --flags: %w", err)
		}
		opts.comparison = fl.Strategy()
		opts.followSymlinks = fl.Has(copyflags.FollowSymlinks)
	}

	if cmd.Flags().Changed("threads") && opts.threads <= 0 {
		return fmt.Errorf("invalid --threads %d: must be positive", opts.threads)
	}
	if err := validatePaths(src, dst); err != nil {
		return err
	}

	var bwLimit int64
	if opts.bwLimit != "" {
		n, err := humanize.ParseBytes(opts.bwLimit)
		if err != nil {
			return fmt.Errorf("invalid --bwlimit: %w", err)
		}
		bwLimit = int64(n) //nolint:gosec // G115: any realistic limit fits
	}

	// Configure logging.
	var logHandler slog.Handler
	switch opts.level {
	case "off":
		logHandler = slog.DiscardHandler
	case "debug":
		logHandler = slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	default:
		logHandler = slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	if opts.logFile != "" {
		lf, err := os.Create(opts.logFile)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer lf.Close()
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{Level: slog.LevelDebug})
		logHandler = ui.NewMultiHandler(logHandler, jsonHandler)
	}
	logger := slog.New(logHandler)

	cfg := engine.DefaultConfig()
	cfg.Logger = logger
	cfg.Threads = opts.threads
	cfg.Comparison = opts.comparison
	cfg.FollowSymlinks = opts.followSymlinks
	cfg.PreserveMetadata = !opts.disableMetadata
	cfg.SizeAware = opts.sizeAware
	cfg.ModTimeWindow = opts.mtimeWindow
	cfg.BWLimit = bwLimit
	cfg.Verify = opts.verify

	// Set up context with signal handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		events       chan event.Event
		presenterErr error
		presenterWg  sync.WaitGroup
	)
	if opts.feed {
		events = make(chan event.Event, 256)
		cfg.Events = events

		width := 0
		color := false
		if out, ok := stdout.(*os.File); ok && ui.IsTTY(out.Fd()) {
			width = ui.TermWidth(out.Fd())
			color = true
		}
		presenter := ui.NewPresenter(ui.Config{
			Writer:  stdout,
			SrcRoot: src,
			Width:   width,
			Feed:    true,
			Color:   color,
		})
		presenterWg.Add(1)
		go func() {
			defer presenterWg.Done()
			presenterErr = presenter.Run(events)
		}()
	}

	report, err := engine.Copy(ctx, src, dst, cfg)
	stop()
	if events != nil {
		close(events)
		presenterWg.Wait()
		if presenterErr != nil {
			fmt.Fprintf(stderr, "presenter: %v\n", presenterErr)
		}
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Error("copy interrupted", "stats", report.Stats.String())
			return &exitError{code: 2}
		}
		return err
	}

	if opts.level != "off" {
		fmt.Fprintln(stderr, ui.CompletionSummary(report.Stats))
	}
	if report.Err() != nil {
		logger.Error("copy finished with errors",
			"failures", len(report.Failures),
			"verify_failures", len(report.VerifyFailures),
		)
		return &exitError{code: 1} // partial failure
	}
	return nil
}

// validatePaths checks that src is a directory and that dst, if present, is one too.
func validatePaths(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source %s is not a directory", src)
	}
	info, err = os.Stat(dst)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("destination: %w", err)
	case !info.IsDir():
		return fmt.Errorf("destination %s is not a directory", dst)
	}
	return nil
}

// applyConfigDefaults applies config file defaults for flags not explicitly set on the CLI.
//
//nolint:gocyclo // one branch per config key
func applyConfigDefaults(cmd *cobra.Command, defaults config.DefaultsConfig, opts *options) error {
	flags := cmd.Flags()
	if !flags.Changed("threads") && defaults.Threads != nil {
		if *defaults.Threads < 0 {
			return fmt.Errorf("threads must not be negative, got %d", *defaults.Threads)
		}
		opts.threads = *defaults.Threads
	}
	if !flags.Changed("comparison-strategy") && defaults.Comparison != nil {
		if err := (strategyFlag{s: &opts.comparison}).Set(*defaults.Comparison); err != nil {
			return err
		}
	}
	if !flags.Changed("follow-symlinks") && defaults.FollowSymlinks != nil {
		opts.followSymlinks = *defaults.FollowSymlinks
	}
	if !flags.Changed("disable-copy-metadata") && defaults.PreserveMetadata != nil {
		opts.disableMetadata = !*defaults.PreserveMetadata
	}
	if !flags.Changed("size-aware") && defaults.SizeAware != nil {
		opts.sizeAware = *defaults.SizeAware
	}
	if !flags.Changed("mtime-window") && defaults.MtimeWindow != nil {
		d, err := time.ParseDuration(*defaults.MtimeWindow)
		if err != nil {
			return fmt.Errorf("mtime_window: %w", err)
		}
		opts.mtimeWindow = d
	}
	if !flags.Changed("level") && defaults.Level != nil {
		if err := (levelFlag{name: &opts.level}).Set(*defaults.Level); err != nil {
			return err
		}
	}
	if !flags.Changed("bwlimit") && defaults.BWLimit != nil {
		opts.bwLimit = *defaults.BWLimit
	}
	if !flags.Changed("verify") && defaults.Verify != nil {
		opts.verify = *defaults.Verify
	}
	return nil
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
