package check

import (
	"io"
	"os"

	"github.com/influxdata/pepclean"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// maxTailWindow is the largest number of bytes read from the end of a file
// per collapse pass.
const maxTailWindow = 16

// TailCheck collapses a run of trailing line breaks down to a single one.
//
// A file consisting only of line breaks collapses to an empty file, and so
// does a one byte file holding a single line break: the empty file is the
// canonical form of a file without content.
type TailCheck struct {
	Logger *zap.Logger
}

// Name returns the name of the check.
func (c TailCheck) Name() string { return "tail-issues" }

func (c TailCheck) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// Detect looks at the last two bytes of f only. Two line breaks mean there
// is at least one redundant trailing line break.
func (c TailCheck) Detect(f io.ReadSeeker) (pepclean.Verdict, error) {
	const op = "check.TailCheck.Detect"

	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return pepclean.DetectionFailed, &pepclean.Error{Code: pepclean.ESeek, Op: op, Path: nameOf(f), Err: err}
	}

	var buf [2]byte
	switch {
	case size == 0:
		return pepclean.NoIssue, nil
	case size == 1:
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return pepclean.DetectionFailed, &pepclean.Error{Code: pepclean.ESeek, Op: op, Path: nameOf(f), Err: err}
		}
		if _, err := io.ReadFull(f, buf[:1]); err != nil {
			return pepclean.DetectionFailed, &pepclean.Error{Code: pepclean.ERead, Op: op, Path: nameOf(f), Err: err}
		}
		if buf[0] == pepclean.LineBreak {
			return pepclean.HasIssue, nil
		}
		return pepclean.NoIssue, nil
	}

	if _, err := f.Seek(-2, io.SeekEnd); err != nil {
		return pepclean.DetectionFailed, &pepclean.Error{Code: pepclean.ESeek, Op: op, Path: nameOf(f), Err: err}
	}
	if _, err := io.ReadFull(f, buf[:]); err != nil {
		return pepclean.DetectionFailed, &pepclean.Error{Code: pepclean.ERead, Op: op, Path: nameOf(f), Err: err}
	}
	if buf[0] == pepclean.LineBreak && buf[1] == pepclean.LineBreak {
		return pepclean.HasIssue, nil
	}
	return pepclean.NoIssue, nil
}

// Fix truncates path until at most one trailing line break remains.
//
// Each pass reads a window of at most maxTailWindow bytes from the end of
// the file. When the whole window consists of line breaks the file is
// truncated to keep one of them and the next pass looks further back, so a
// file is never scanned from the start no matter how long its tail is.
func (c TailCheck) Fix(path string) error {
	for {
		p, err := c.collapse(path)
		if err != nil {
			return err
		}

		if p.newSize != p.size {
			if err := os.Truncate(path, p.newSize); err != nil {
				return &pepclean.Error{Code: pepclean.ETruncate, Op: "check.TailCheck.Fix", Path: path, Err: err}
			}
			c.logger().Debug("Truncated trailing line breaks",
				zap.String("path", path),
				zap.Int64("from", p.size),
				zap.Int64("to", p.newSize))
		}

		if p.done {
			return nil
		}
	}
}

// collapsePass is the outcome of examining one window at the end of a file.
type collapsePass struct {
	size    int64 // size of the file when the window was read
	newSize int64 // size to truncate to; equal to size when nothing changes
	done    bool  // no further pass is needed
}

// collapse reads one window from the end of path and decides where to
// truncate. The file is closed before it returns, so the caller never
// truncates a file that still has an open read descriptor.
func (c TailCheck) collapse(path string) (p collapsePass, err error) {
	const op = "check.TailCheck.Fix"

	f, err := os.Open(path)
	if err != nil {
		return p, &pepclean.Error{Code: pepclean.EOpen, Op: op, Path: path, Err: err}
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))

	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return p, &pepclean.Error{Code: pepclean.ESeek, Op: op, Path: path, Err: err}
	}
	p.size, p.newSize = size, size

	window := tailWindow(size)
	if window == 0 {
		p.done = true
		return p, nil
	}

	if _, err := f.Seek(-window, io.SeekEnd); err != nil {
		return p, &pepclean.Error{Code: pepclean.ESeek, Op: op, Path: path, Err: err}
	}
	buf := make([]byte, window)
	if _, err := io.ReadFull(f, buf); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			err = pepclean.ErrModified
		}
		return p, &pepclean.Error{Code: pepclean.ERead, Op: op, Path: path, Err: err}
	}

	// keep is the offset within the window just past the first line break
	// of the trailing run.
	last := int64(len(buf)) - 1
	for ; last >= 0; last-- {
		if buf[last] != pepclean.LineBreak {
			break
		}
	}
	keep := last + 2
	if keep > window {
		// No more than one trailing line break.
		p.done = true
		return p, nil
	}

	p.newSize = size - (window - keep)
	if p.newSize == 1 {
		// Only line breaks were left; the lone remaining one goes too.
		p.newSize = 0
	}

	// A run that stops inside the window has been dealt with completely.
	p.done = window <= 1 || keep > 1
	return p, nil
}

// tailWindow returns the largest window of maxTailWindow, maxTailWindow/2,
// and so on down to 1 that fits in a file of the given size, or 0 for an
// empty file.
func tailWindow(size int64) int64 {
	window := int64(maxTailWindow)
	for ; window > 0; window /= 2 {
		if window <= size {
			break
		}
	}
	return window
}
