// Package file replaces files on disk without exposing partially written
// content.
package file

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/influxdata/pepclean"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// writeBufferSize is the size of the buffer between fill and the temp file.
const writeBufferSize = 64 * 1024

// ID identifies a file independent of the path used to reach it.
type ID struct {
	Dev uint64
	Ino uint64
}

// Replace atomically replaces the contents of path with whatever fill writes.
//
// The new content is written to a temporary file in the same directory, which
// receives the mode and ownership of the original on a best-effort basis
// (failures are logged, not returned). Only once the temporary file has been
// flushed, synced and closed is it renamed over path. On any error the
// temporary file is removed and path is left untouched.
//
// Errors returned by fill are passed through unchanged.
func Replace(log *zap.Logger, path string, fill func(w io.Writer) error) (err error) {
	const op = "file.Replace"
	if log == nil {
		log = zap.NewNop()
	}

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return &pepclean.Error{Code: pepclean.EOpen, Op: op, Path: path, Msg: "create temp file", Err: err}
	}
	tmpPath := tmp.Name()

	defer func() {
		if err == nil {
			return
		}
		if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Warn("Unable to remove temporary file", zap.String("path", tmpPath), zap.Error(rmErr))
		}
	}()

	if fi, statErr := os.Stat(path); statErr != nil {
		log.Warn("Unable to stat original file", zap.String("path", path), zap.Error(statErr))
	} else {
		copyMetadata(log, tmp, path, fi)
	}

	if err := write(tmp, fill); err != nil {
		return multierr.Append(err, tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return &pepclean.Error{Code: pepclean.EWrite, Op: op, Path: tmpPath, Msg: "close", Err: err}
	}

	if err := RenameFile(tmpPath, path); err != nil {
		return &pepclean.Error{Code: pepclean.ERename, Op: op, Path: path, Err: err}
	}

	// The rename is done at this point, so a failed directory sync does not
	// fail the replacement.
	if err := SyncDir(dir); err != nil {
		log.Warn("Unable to sync directory", zap.String("path", dir), zap.Error(err))
	}
	return nil
}

func write(f *os.File, fill func(w io.Writer) error) error {
	const op = "file.Replace"

	w := bufio.NewWriterSize(f, writeBufferSize)
	if err := fill(w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return &pepclean.Error{Code: pepclean.EWrite, Op: op, Path: f.Name(), Msg: "flush", Err: err}
	}
	if err := f.Sync(); err != nil {
		return &pepclean.Error{Code: pepclean.EWrite, Op: op, Path: f.Name(), Msg: "sync", Err: err}
	}
	return nil
}

// copyMetadata copies the permission bits in fi and, where supported, the
// owner of src onto f.
func copyMetadata(log *zap.Logger, f *os.File, src string, fi os.FileInfo) {
	mode := fi.Mode() & (os.ModePerm | os.ModeSetuid | os.ModeSetgid | os.ModeSticky)
	if err := f.Chmod(mode); err != nil {
		log.Warn("Unable to copy file mode",
			zap.String("path", f.Name()),
			zap.Stringer("mode", mode),
			zap.Error(err))
	}
	copyOwner(log, f, src)
}
