//go:build !windows

package file

import (
	"errors"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// SyncDir flushes any file renames to the filesystem.
func SyncDir(dirName string) error {
	// fsync the dir to flush the rename
	dir, err := os.OpenFile(dirName, os.O_RDONLY, os.ModeDir)
	if err != nil {
		return err
	}
	defer dir.Close()

	// A Docker container pointed at a Windows volume over samba does not
	// support fsyncs on directories and reports EINVAL, which is ignored.
	err = dir.Sync()
	if errors.Is(err, unix.EINVAL) {
		err = nil
	} else if err != nil {
		return err
	}

	return dir.Close()
}

// RenameFile will rename the source to target using os function.
func RenameFile(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

// copyOwner gives f the uid and gid of the file at src. Failures are logged
// and otherwise ignored: an unprivileged user can usually only keep the group
// if they are a member of it.
func copyOwner(log *zap.Logger, f *os.File, src string) {
	var st unix.Stat_t
	if err := unix.Stat(src, &st); err != nil {
		log.Warn("Unable to read file ownership", zap.String("path", src), zap.Error(err))
		return
	}
	if st.Uid == uint32(os.Geteuid()) && st.Gid == uint32(os.Getegid()) {
		return
	}
	if err := unix.Fchown(int(f.Fd()), int(st.Uid), int(st.Gid)); err != nil {
		log.Warn("Unable to copy file ownership",
			zap.String("path", f.Name()),
			zap.Uint32("uid", st.Uid),
			zap.Uint32("gid", st.Gid),
			zap.Error(err))
	}
}

// IDOf returns the device and inode of the file at path, following symlinks.
func IDOf(path string) (ID, bool) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return ID{}, false
	}
	return ID{Dev: uint64(st.Dev), Ino: uint64(st.Ino)}, true
}
