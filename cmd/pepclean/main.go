// Command pepclean normalizes whitespace in text files in place.
//
// It expands TABs to eight spaces, drops carriage returns, strips trailing
// whitespace, terminates the last line and collapses trailing blank lines.
// Files that are already clean are never opened for writing.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	humanize "github.com/dustin/go-humanize"
	"github.com/influxdata/pepclean"
	"github.com/influxdata/pepclean/clean"
	"github.com/influxdata/pepclean/kit/cli"
	"github.com/influxdata/pepclean/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// App is a single pepclean invocation.
type App struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	LogConfig   logger.Config
	Jobs        int
	Check       bool
	FilesFrom   string
	Null        bool
	MetricsPath string
}

// NewApp returns an App with default options.
func NewApp(stdin io.Reader, stdout, stderr io.Writer) *App {
	return &App{
		Stdin:     stdin,
		Stdout:    stdout,
		Stderr:    stderr,
		LogConfig: logger.NewConfig(),
	}
}

func (a *App) opts() []cli.Opt {
	return []cli.Opt{
		{
			DestP:   &a.LogConfig.Level,
			Flag:    "log-level",
			Default: a.LogConfig.Level,
			Desc:    "supported log levels are debug, info, warn and error",
		},
		{
			DestP:   &a.LogConfig.Format,
			Flag:    "log-format",
			Default: a.LogConfig.Format,
			Desc:    "log output format: auto, console, logfmt or json",
		},
		{
			DestP: &a.Jobs,
			Flag:  "jobs",
			Short: 'j',
			Desc:  "number of files to process concurrently (default: number of CPUs)",
		},
		{
			DestP: &a.Check,
			Flag:  "check",
			Desc:  "list files that need fixing without modifying them",
		},
		{
			DestP: &a.FilesFrom,
			Flag:  "files-from",
			Desc:  "read paths from a file, one per line; - reads standard input",
		},
		{
			DestP: &a.Null,
			Flag:  "null",
			Desc:  "paths read with --files-from are separated by NUL bytes",
		},
		{
			DestP: &a.MetricsPath,
			Flag:  "metrics-path",
			Desc:  "write prometheus metrics for the run to this file",
		},
	}
}

// Execute parses args, runs pepclean and returns the process exit code.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	app := NewApp(stdin, stdout, stderr)
	code := pepclean.ExitUnchanged

	var cmd *cobra.Command
	cmd, err := cli.NewCommand(viper.New(), &cli.Program{
		Name:  "pepclean",
		Use:   "pepclean [flags] [path...]",
		Short: "Normalize whitespace in text files",
		Long: `Normalize whitespace in text files in place.

TABs become eight spaces, carriage returns are removed, trailing whitespace is
stripped, the last line is terminated and trailing blank lines are collapsed.

Exit status is 0 when no file needed fixing, 2 when at least one file was fixed
(or would be, with --check) and 1 when any file could not be processed.`,
		Args: cobra.ArbitraryArgs,
		Opts: app.opts(),
		Run: func(paths []string) error {
			if len(paths) == 0 && app.FilesFrom == "" {
				return cmd.Help()
			}

			var err error
			code, err = app.Run(ctx, paths)
			return err
		},
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return pepclean.ExitFailed
	}

	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SilenceUsage = true

	if err := cmd.Execute(); err != nil {
		return pepclean.ExitFailed
	}
	return code
}

// Run processes paths plus any listed by FilesFrom and returns the exit code.
// Errors are returned only for invalid options; per-file failures are
// reflected in the exit code.
func (a *App) Run(ctx context.Context, paths []string) (int, error) {
	log, err := a.LogConfig.New(a.Stderr)
	if err != nil {
		return pepclean.ExitFailed, err
	}
	defer func() { _ = log.Sync() }()

	if a.FilesFrom != "" {
		listed, err := a.readFilesFrom()
		if err != nil {
			return pepclean.ExitFailed, err
		}
		paths = append(paths, listed...)
	}

	c := clean.NewCleaner(log)
	c.Jobs = a.Jobs
	c.DryRun = a.Check

	var reg *prometheus.Registry
	if a.MetricsPath != "" {
		reg = prometheus.NewRegistry()
		c.Metrics = clean.NewMetrics(reg)
	}

	results, err := c.Run(ctx, paths)
	if err != nil {
		log.Warn("Run interrupted", zap.Error(err))
	}

	s := clean.Summarize(results)
	a.report(results, s)

	if reg != nil {
		if err := prometheus.WriteToTextfile(a.MetricsPath, reg); err != nil {
			log.Error("Unable to write metrics", zap.String("path", a.MetricsPath), zap.Error(err))
			return pepclean.ExitFailed, nil
		}
	}
	return s.ExitCode(), nil
}

func (a *App) readFilesFrom() ([]string, error) {
	var data []byte
	var err error
	if a.FilesFrom == "-" {
		data, err = io.ReadAll(a.Stdin)
	} else {
		data, err = os.ReadFile(a.FilesFrom)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read paths from %q: %w", a.FilesFrom, err)
	}

	sep := byte('\n')
	if a.Null {
		sep = 0
	}

	var paths []string
	for _, p := range bytes.Split(data, []byte{sep}) {
		if len(p) == 0 {
			continue
		}
		paths = append(paths, string(p))
	}
	return paths, nil
}

func (a *App) report(results []pepclean.Result, s clean.Summary) {
	if a.Check {
		for _, r := range results {
			if r.Status == pepclean.StatusFixed {
				fmt.Fprintln(a.Stdout, r.Path)
			}
		}
		if s.Fixed > 0 {
			fmt.Fprintf(a.Stdout, "would fix %d file(s)\n", s.Fixed)
		}
	} else if s.Fixed > 0 {
		if s.BytesRemoved >= 0 {
			fmt.Fprintf(a.Stdout, "fixed %d file(s), removed %s\n", s.Fixed, humanize.Bytes(uint64(s.BytesRemoved)))
		} else {
			fmt.Fprintf(a.Stdout, "fixed %d file(s), added %s\n", s.Fixed, humanize.Bytes(uint64(-s.BytesRemoved)))
		}
	}

	if s.Failed > 0 {
		fmt.Fprintf(a.Stderr, "failed to process %d file(s)\n", s.Failed)
	}
}
