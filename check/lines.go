package check

import (
	"bytes"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/influxdata/pepclean"
	"github.com/influxdata/pepclean/pkg/file"
	"github.com/influxdata/pepclean/pkg/linebuf"
	"go.uber.org/zap"
)

// TabWidth is the number of spaces a TAB is replaced with, regardless of
// the column it appears in.
const TabWidth = 8

var tabSpaces = bytes.Repeat([]byte{' '}, TabWidth)

var replaceFile = file.Replace

// LineCheck finds and removes CR bytes, TAB bytes and trailing horizontal
// whitespace, and terminates an unterminated final line.
//
// Chunks that fill the whole read buffer belong to lines longer than
// BufferSize-1 bytes. The detector flags them, but the rewriter copies them
// through untouched rather than edit a line it cannot see in one piece.
type LineCheck struct {
	Logger *zap.Logger

	// BufferSize is the size of the line buffer. Zero means
	// linebuf.DefaultSize.
	BufferSize int
}

// Name returns the name of the check.
func (c LineCheck) Name() string { return "line-issues" }

func (c LineCheck) bufferSize() int {
	if c.BufferSize <= 0 {
		return linebuf.DefaultSize
	}
	return c.BufferSize
}

func (c LineCheck) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// Detect reports HasIssue as soon as a chunk contains a CR or a TAB, lacks
// a terminating line break, or has a space right before its line break.
// An empty file has no line issues.
func (c LineCheck) Detect(f io.ReadSeeker) (pepclean.Verdict, error) {
	const op = "check.LineCheck.Detect"

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return pepclean.DetectionFailed, &pepclean.Error{Code: pepclean.ESeek, Op: op, Path: nameOf(f), Err: err}
	}

	r := linebuf.NewReader(f, c.bufferSize())
	for {
		line, err := r.ReadLine()
		if errors.Is(err, io.EOF) {
			return pepclean.NoIssue, nil
		} else if err != nil {
			return pepclean.DetectionFailed, &pepclean.Error{Code: pepclean.ERead, Op: op, Path: nameOf(f), Err: err}
		}

		if bytes.IndexByte(line, '\r') >= 0 || bytes.IndexByte(line, '\t') >= 0 {
			return pepclean.HasIssue, nil
		}

		n := len(line)
		if line[n-1] != pepclean.LineBreak {
			// No break at the end of the file, or a line too long for
			// the buffer.
			return pepclean.HasIssue, nil
		}
		if n > 1 && line[n-2] == ' ' {
			return pepclean.HasIssue, nil
		}
	}
}

// Fix rewrites path through a temporary file. The original is only replaced
// once the new content has been written in full.
func (c LineCheck) Fix(path string) error {
	const op = "check.LineCheck.Fix"

	in, err := os.Open(path)
	if err != nil {
		return &pepclean.Error{Code: pepclean.EOpen, Op: op, Path: path, Err: err}
	}
	// in must be closed before the rewritten copy is renamed over path.
	closeIn := sync.OnceValue(in.Close)
	defer closeIn()

	if err := replaceFile(c.logger(), path, func(w io.Writer) error {
		if err := c.rewrite(in, w); err != nil {
			return err
		}
		if err := closeIn(); err != nil {
			return &pepclean.Error{Code: pepclean.ERead, Op: op, Path: path, Err: err}
		}
		return nil
	}); err != nil {
		return err
	}

	c.logger().Debug("Rewrote line issues", zap.String("path", path))
	return nil
}

// rewrite streams in to w one bounded chunk at a time.
func (c LineCheck) rewrite(in *os.File, w io.Writer) error {
	const op = "check.LineCheck.Fix"

	r := linebuf.NewReader(in, c.bufferSize())
	lw := &lineWriter{
		w:   w,
		buf: make([]byte, 0, c.bufferSize()+TabWidth),
	}
	// Room for a synthetic line break after a partial final line.
	line := make([]byte, 0, r.Max()+1)

	for {
		chunk, err := r.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return &pepclean.Error{Code: pepclean.ERead, Op: op, Path: in.Name(), Err: err}
		}

		if r.IsFull(chunk) {
			if err := lw.emit(chunk); err != nil {
				return &pepclean.Error{Code: pepclean.EWrite, Op: op, Path: in.Name(), Err: err}
			}
			continue
		}

		line = append(line[:0], chunk...)
		if line[len(line)-1] != pepclean.LineBreak {
			line = append(line, pepclean.LineBreak)
		}

		if err := lw.writeLine(line); err != nil {
			return &pepclean.Error{Code: pepclean.EWrite, Op: op, Path: in.Name(), Err: err}
		}
	}
}

// lineWriter writes cleaned lines through a small output window.
type lineWriter struct {
	w   io.Writer
	buf []byte
}

// writeLine writes a single line, which must end in a line break, with
// trailing whitespace trimmed, CR bytes dropped and TAB bytes expanded.
func (lw *lineWriter) writeLine(line []byte) error {
	if len(line) == 1 {
		return lw.emit(line)
	}

	end := len(line) - 2
	for ; end >= 0; end-- {
		if !isTrailingSpace(line[end]) {
			break
		}
	}
	if end < 0 {
		return lw.emit(line[len(line)-1:])
	}
	line = append(line[:end+1], pepclean.LineBreak)

	if bytes.IndexByte(line, '\r') < 0 && bytes.IndexByte(line, '\t') < 0 {
		return lw.emit(line)
	}

	lw.buf = lw.buf[:0]
	for _, b := range line {
		switch b {
		case '\r':
		case '\t':
			if len(lw.buf)+TabWidth > cap(lw.buf) {
				if err := lw.flush(); err != nil {
					return err
				}
			}
			lw.buf = append(lw.buf, tabSpaces...)
		default:
			if len(lw.buf) == cap(lw.buf) {
				if err := lw.flush(); err != nil {
					return err
				}
			}
			lw.buf = append(lw.buf, b)
		}
	}
	return lw.flush()
}

func (lw *lineWriter) flush() error {
	err := lw.emit(lw.buf)
	lw.buf = lw.buf[:0]
	return err
}

func (lw *lineWriter) emit(p []byte) error {
	_, err := lw.w.Write(p)
	return err
}

func isTrailingSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r'
}
