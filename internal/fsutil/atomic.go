// Package fsutil contains file helpers shared by the index and batch code
package fsutil

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	filePerm = 0o644
	dirPerm  = 0o755
	bufSize  = 64 * 1024
)

// WriteFile creates dest (and its parent directories) with the content
// produced by fill. The content is written to a temporary file in the same
// directory and renamed into place, so dest either has the complete content
// or is left untouched.
func WriteFile(dest string, fill func(w io.Writer) error) (retErr error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return errors.Wrapf(err, "create directory %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "create temporary file in %s", dir)
	}
	tmpPath := tmp.Name()
	defer func() {
		if retErr != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	bw := bufio.NewWriterSize(tmp, bufSize)
	if err := fill(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrapf(err, "write %s", tmpPath)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		return errors.Wrapf(err, "chmod %s", tmpPath)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmpPath)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return errors.Wrapf(err, "rename %s to %s", tmpPath, dest)
	}
	return nil
}

// CopyFile copies src to dest using WriteFile
func CopyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "open %s", src)
	}
	defer in.Close()
	return WriteFile(dest, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return errors.Wrapf(err, "copy %s", src)
	})
}

// IsDir reports whether path exists and is a directory
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
