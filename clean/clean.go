// Package clean runs the whitespace checks over batches of files.
//
// For each file every detector runs first, against a single read-only
// handle. Files without issues are never opened for writing. Otherwise the
// fixers of the checks that fired run in registry order.
package clean

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/benbjohnson/clock"
	"github.com/influxdata/pepclean"
	"github.com/influxdata/pepclean/check"
	"github.com/influxdata/pepclean/pkg/file"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Cleaner checks and fixes files.
type Cleaner struct {
	// Checks run in order. Defaults to check.Registry.
	Checks []pepclean.Check

	Logger *zap.Logger

	// Jobs is the number of files processed concurrently. Zero means
	// runtime.GOMAXPROCS(0).
	Jobs int

	// DryRun reports files that need fixing without modifying them.
	DryRun bool

	// Metrics is optional.
	Metrics *Metrics

	// Clock times each run. Defaults to the wall clock.
	Clock clock.Clock
}

// NewCleaner returns a Cleaner running the default checks.
func NewCleaner(log *zap.Logger) *Cleaner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cleaner{
		Checks: check.Registry(log),
		Logger: log,
	}
}

func (c *Cleaner) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c *Cleaner) checks() []pepclean.Check {
	if c.Checks == nil {
		return check.Registry(c.logger())
	}
	return c.Checks
}

func (c *Cleaner) clock() clock.Clock {
	if c.Clock == nil {
		return clock.New()
	}
	return c.Clock
}

func (c *Cleaner) jobs() int {
	if c.Jobs <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return c.Jobs
}

// Run processes paths concurrently and returns one result per distinct
// file, in the order the paths were first given. Paths that name the same
// file, by spelling, symlink or hard link, are processed once under the first
// such path so that no file is ever worked on by two goroutines.
//
// Cancelling ctx stops new files from being started; files already in
// progress are finished. Files that were never started are reported as
// failed with the context error, which Run also returns.
func (c *Cleaner) Run(ctx context.Context, paths []string) ([]pepclean.Result, error) {
	paths = dedupe(paths)
	results := make([]pepclean.Result, len(paths))
	start := c.clock().Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.jobs())

	for i, path := range paths {
		if err := gctx.Err(); err != nil {
			results[i] = pepclean.Result{Path: path, Status: pepclean.StatusFailed, Err: err}
			continue
		}

		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = pepclean.Result{Path: path, Status: pepclean.StatusFailed, Err: err}
				return err
			}
			results[i] = c.ProcessFile(path)
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	c.logger().Info("Run complete",
		zap.Int("files", len(paths)),
		zap.Duration("elapsed", c.clock().Since(start)),
		zap.Bool("dry_run", c.DryRun))
	return results, err
}

// ProcessFile runs every check against a single file.
func (c *Cleaner) ProcessFile(path string) pepclean.Result {
	log := c.logger().With(zap.String("path", path))
	checks := c.checks()
	r := pepclean.Result{Path: path}

	fired, size, err := c.detect(path, checks)
	if err != nil {
		return c.fail(log, r, err)
	}
	r.SizeBefore, r.SizeAfter = size, size

	if !anyFired(fired) {
		r.Status = pepclean.StatusUnchanged
		log.Debug("File is clean")
		c.Metrics.observe(r)
		return r
	}

	if c.DryRun {
		for i, ok := range fired {
			if ok {
				r.Fixed = append(r.Fixed, checks[i].Name())
			}
		}
		r.Status = pepclean.StatusFixed
		log.Info("File needs fixing", zap.Strings("checks", r.Fixed))
		c.Metrics.observe(r)
		return r
	}

	modified := false
	for i, chk := range checks {
		run := fired[i]
		if !run && modified {
			// An earlier fix can expose an issue, e.g. blank lines that
			// only become trailing line breaks once their spaces are gone.
			v, err := detectOne(path, chk)
			if err != nil {
				return c.fail(log, r, err)
			}
			run = v == pepclean.HasIssue
		}
		if !run {
			continue
		}

		if err := chk.Fix(path); err != nil {
			return c.fail(log, r, err)
		}
		r.Fixed = append(r.Fixed, chk.Name())
		modified = true
	}

	if fi, err := os.Stat(path); err != nil {
		log.Warn("Unable to stat fixed file", zap.Error(err))
	} else {
		r.SizeAfter = fi.Size()
	}

	r.Status = pepclean.StatusFixed
	log.Info("Fixed file", zap.Strings("checks", r.Fixed))
	c.Metrics.observe(r)
	return r
}

func (c *Cleaner) fail(log *zap.Logger, r pepclean.Result, err error) pepclean.Result {
	r.Status = pepclean.StatusFailed
	r.Err = err
	log.Error("Failed to process file",
		zap.String("code", pepclean.ErrorCode(err)),
		zap.Error(err))
	c.Metrics.observe(r)
	return r
}

// detect runs every detector against one read handle. It stops at the
// first detector that fails.
func (c *Cleaner) detect(path string, checks []pepclean.Check) (fired []bool, size int64, err error) {
	const op = "clean.Cleaner.detect"

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, &pepclean.Error{Code: pepclean.EOpen, Op: op, Path: path, Err: err}
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))

	fi, err := f.Stat()
	if err != nil {
		return nil, 0, &pepclean.Error{Code: pepclean.EOpen, Op: op, Path: path, Err: err}
	} else if !fi.Mode().IsRegular() {
		return nil, 0, &pepclean.Error{Code: pepclean.EOpen, Op: op, Path: path, Msg: fmt.Sprintf("not a regular file (%s)", fi.Mode().Type())}
	}

	fired = make([]bool, len(checks))
	for i, chk := range checks {
		v, err := chk.Detect(f)
		if err != nil {
			return nil, 0, err
		}
		fired[i] = v == pepclean.HasIssue
	}
	return fired, fi.Size(), nil
}

func detectOne(path string, chk pepclean.Check) (v pepclean.Verdict, err error) {
	f, err := os.Open(path)
	if err != nil {
		return pepclean.DetectionFailed, &pepclean.Error{Code: pepclean.EOpen, Op: "clean.detectOne", Path: path, Err: err}
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))
	return chk.Detect(f)
}

func anyFired(fired []bool) bool {
	for _, ok := range fired {
		if ok {
			return true
		}
	}
	return false
}

// dedupe drops every path that names a file already named by an earlier
// path, whether through a different spelling, a symlink or a hard link.
func dedupe(paths []string) []string {
	seen := make(map[interface{}]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		key := fileKey(p)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// fileKey returns the device and inode of path where the platform provides
// them, and otherwise its absolute path with symlinks resolved.
func fileKey(path string) interface{} {
	if id, ok := file.IDOf(path); ok {
		return id
	}

	key, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(key); err == nil {
		key = resolved
	}
	return key
}
