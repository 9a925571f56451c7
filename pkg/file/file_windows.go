package file

import (
	"os"

	"go.uber.org/zap"
)

// SyncDir is a no-op on Windows, which has no directory fsync.
func SyncDir(dirName string) error {
	return nil
}

// RenameFile will rename the source to target using os function. On Windows
// os.Rename replaces an existing target via MoveFileEx.
func RenameFile(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

// copyOwner is a no-op on Windows.
func copyOwner(*zap.Logger, *os.File, string) {}

// IDOf always reports false on Windows.
func IDOf(string) (ID, bool) {
	return ID{}, false
}
