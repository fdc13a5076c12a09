package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/gookit/color"

	bearsslbuild "github.com/contriboss/bearssl-build-go"
)

// ExitError carries the process exit code for a failed run.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// options are the parsed command line.
type options struct {
	strategy   string
	outDir     string
	bindings   string
	link       string
	pkg        string
	profile    string
	logLevel   string
	logFormat  string
	cleanFirst bool
	verbose    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:], os.LookupEnv); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintln(os.Stderr, color.Danger.Sprint("error:"), exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, color.Danger.Sprint("error:"), err)
		os.Exit(1)
	}
}

func run(ctx context.Context, outW, errW io.Writer, args []string, lookup bearsslbuild.LookupFunc) error {
	opts, shouldExit, err := parseFlags(args, errW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	logger := newLogger(opts.logLevel, opts.logFormat, errW)

	cfg, err := bearsslbuild.LoadConfig(bearsslbuild.Overlay(lookup, map[string]string{
		bearsslbuild.OutDirVar: opts.outDir,
	}))
	if err != nil {
		stageErr := &bearsslbuild.StageError{Stage: bearsslbuild.StageConfiguration, Err: err}
		return &ExitError{Code: 1, Message: stageErr.Error()}
	}
	cfg.Strategy, err = bearsslbuild.ParseStrategy(opts.strategy)
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	cfg.CleanFirst = opts.cleanFirst
	cfg.Verbose = opts.verbose

	pipeline := bearsslbuild.NewPipeline(logger)
	pipeline.Package = opts.pkg
	pipeline.Profile = opts.profile
	pipeline.BindingsPath = opts.bindings
	pipeline.LinkPath = opts.link

	report, err := pipeline.Run(ctx, cfg)
	if err != nil {
		var exitStatus *bearsslbuild.ExitStatusError
		if errors.As(err, &exitStatus) && exitStatus.Output != "" {
			fmt.Fprintln(errW, strings.TrimRight(exitStatus.Output, "\n"))
		}
		return &ExitError{Code: 1, Message: err.Error()}
	}

	fmt.Fprintf(outW, "%s %s\n", color.Success.Sprint("ok"), report.Location)
	fmt.Fprintf(outW, "  bindings: %s (%d types, %d functions, %d constants)\n",
		report.BindingsPath, len(report.Module.Types), len(report.Module.Functions), len(report.Module.Constants))
	fmt.Fprintf(outW, "  link:     %s\n", report.LinkPath)
	if !report.Module.LayoutTests {
		fmt.Fprintf(outW, "  layout checks disabled for %s\n", cfg.Target)
	}
	return nil
}

func parseFlags(args []string, output io.Writer) (*options, bool, error) {
	fs := flag.NewFlagSet("bearssl-build", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(output, `
bearssl-build - locate or compile BearSSL and generate Go bindings for it.

Usage:
  bearssl-build [options]

Environment:
  OUT_DIR                    Output directory (required unless -out-dir is given)
  BEARSSL_PRECOMPILED_PATH   Directory holding a prebuilt libbearssl.a
  BEARSSL_SOURCE_PATH        BearSSL source tree to compile
  BEARSSL_INCLUDE_PATH       Header directory (default: <location>/inc)
  BEARSSL_GIT_HASH           Revision to check out when cloning
  TARGET                     Target triple (default: derived from GOOS/GOARCH)

Options:
`)
		fs.PrintDefaults()
	}

	opts := &options{}
	fs.StringVar(&opts.strategy, "strategy", string(bearsslbuild.StrategyDirect), "Source build strategy. Options: 'direct' or 'delegated'.")
	fs.StringVar(&opts.outDir, "out-dir", "", "Output directory; overrides OUT_DIR.")
	fs.StringVar(&opts.bindings, "o", "", "Path of the generated bindings (default OUT_DIR/"+bearsslbuild.DefaultBindingsFile+").")
	fs.StringVar(&opts.link, "link", "", "Path of the generated link directives (default OUT_DIR/"+bearsslbuild.DefaultLinkFile+").")
	fs.StringVar(&opts.pkg, "package", "", "Go package name of the generated files (default bearssl).")
	fs.StringVar(&opts.profile, "profile", "", "Binding profile (default: the strategy name).")
	fs.StringVar(&opts.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	fs.StringVar(&opts.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	fs.BoolVar(&opts.cleanFirst, "clean", false, "Clean the source tree before building.")
	fs.BoolVar(&opts.verbose, "v", false, "Record compiler command lines.")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if fs.NArg() > 0 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unexpected argument %q", fs.Arg(0))}
	}

	opts.logFormat = strings.ToLower(opts.logFormat)
	if opts.logFormat != "text" && opts.logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	opts.logLevel = strings.ToLower(opts.logLevel)
	switch opts.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	return opts, false, nil
}

// newLogger builds the logger for one run without touching the global one.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(outW, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(outW, handlerOpts))
}
