package pepclean

import (
	"errors"
	"strings"
)

// Error codes for the file system failures a check can run into.
const (
	EInternal = "internal error"
	EOpen     = "open failure"
	ESeek     = "seek failure"
	ERead     = "read failure" // includes short reads where a full read was required
	EWrite    = "write failure"
	ETruncate = "truncate failure"
	ERename   = "rename failure"
)

// ErrModified is returned when a file shrank between sizing it and reading
// from it.
var ErrModified = errors.New("file modified during processing")

// Error is the error type returned by checks and the file helpers.
//
// Code classifies the failure, Op names the operation that failed (for
// example "check.TailCheck.Fix"), Path is the file being processed and Err is
// the underlying OS error, if any.
type Error struct {
	Code string
	Msg  string
	Op   string
	Path string
	Err  error
}

// Error renders "op path: msg: err", omitting empty parts.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
	}
	if e.Path != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(e.Path)
	}
	for _, s := range []string{e.Msg, errString(e.Err)} {
		if s == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(s)
	}
	if b.Len() == 0 {
		return "<" + e.Code + ">"
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ErrorCode returns the code of the outermost *Error in err's chain that has
// one. Errors that carry no code report EInternal.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	for errors.As(err, &e) {
		if e.Code != "" {
			return e.Code
		}
		if e.Err == nil {
			break
		}
		err = e.Err
	}
	return EInternal
}
