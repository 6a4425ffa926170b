package linker

import (
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// EnsureSymlink makes dst a symlink to src. Whatever occupies dst beforehand
// (a stale link, a file or a directory) is removed first, and dst's parent is created.
func EnsureSymlink(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		log.WithField("path", dst).Debug("removing existing file")
		if err := os.RemoveAll(dst); err != nil {
			return xerrors.Errorf("cannot remove %s: %w", dst, err)
		}
	} else if !os.IsNotExist(err) {
		return xerrors.Errorf("cannot stat %s: %w", dst, err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return xerrors.Errorf("cannot create parent of %s: %w", dst, err)
	}
	if err := os.Symlink(src, dst); err != nil {
		return xerrors.Errorf("cannot link %s to %s: %w", dst, src, err)
	}
	return nil
}
