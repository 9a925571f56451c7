// Package linebuf reads text in bounded, line-sized chunks.
//
// A Reader behaves like repeated fgets(3) calls into a buffer of a fixed
// size: each chunk ends just after a line break, or once size-1 bytes have
// been read, or at end of file. Lines longer than the buffer are therefore
// returned in several pieces, and only the last piece carries the break.
package linebuf

import (
	"bufio"
	"errors"
	"io"
)

// DefaultSize matches the stdio BUFSIZ used by most C libraries.
const DefaultSize = 8192

// minSize keeps the usable capacity at bufio's minimum buffer size.
const minSize = 17

// Reader returns successive bounded chunks of an underlying reader.
type Reader struct {
	rd  *bufio.Reader
	max int
}

// NewReader returns a Reader whose chunks never exceed size-1 bytes.
func NewReader(r io.Reader, size int) *Reader {
	if size < minSize {
		size = minSize
	}
	return &Reader{
		rd:  bufio.NewReaderSize(r, size-1),
		max: size - 1,
	}
}

// Max returns the largest chunk ReadLine can return.
func (r *Reader) Max() int { return r.max }

// ReadLine returns the next chunk. The chunk ends with '\n' unless it is
// Max bytes long or it is the final, unterminated piece of the input. Once
// the input is exhausted ReadLine returns (nil, io.EOF).
//
// The returned slice is only valid until the next call.
func (r *Reader) ReadLine() ([]byte, error) {
	line, err := r.rd.ReadSlice('\n')
	switch {
	case err == nil:
		return line, nil
	case errors.Is(err, bufio.ErrBufferFull):
		return line, nil
	case errors.Is(err, io.EOF):
		if len(line) == 0 {
			return nil, io.EOF
		}
		return line, nil
	}
	return nil, err
}

// IsFull reports whether line is an unterminated chunk that filled the
// whole buffer of r, i.e. part of a line longer than the buffer.
func (r *Reader) IsFull(line []byte) bool {
	return len(line) == r.max && line[len(line)-1] != '\n'
}
