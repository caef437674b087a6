package atomicfile

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Some references:
// - https://www.slideshare.net/nan1nan1/eat-my-data
// - https://lwn.net/Articles/457667/

var (
	// ErrCancelled is returned by calls subsequent to RemoveIfNotClosed()
	ErrCancelled = errors.New("cancelled")

	_ io.WriteCloser = &File{}
)

// DefaultPerm is the permission of the destination file unless
// changed with SetPerm
const DefaultPerm fs.FileMode = 0644

// File is written to a temporary file in the same directory as
// destination and renamed over it in Close(). Readers of the destination
// either see the old content or the new content, never a partial write.
type File struct {
	dstPath string
	dir     string
	tmpFile *os.File
	tmpPath string
	perm    fs.FileMode
	// first error we encountered, returned by all subsequent calls
	err error
}

// New creates a temporary file next to path. The directory must exist.
func New(path string) (*File, error) {
	dir, name := filepath.Split(path)
	if name == "" {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrInvalid}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	// "name.tmp-*" makes leftovers after a crash easy to identify
	tmpFile, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return nil, err
	}
	return &File{
		dstPath: path,
		dir:     dir,
		tmpFile: tmpFile,
		tmpPath: tmpFile.Name(),
		perm:    DefaultPerm,
	}, nil
}

// SetPerm sets permissions of the destination file. os.CreateTemp
// creates files with 0600 which is rarely what we want for data files.
func (f *File) SetPerm(perm fs.FileMode) {
	f.perm = perm
}

// fail remembers the first error and deletes the temporary file
func (f *File) fail(err error) error {
	if err == nil {
		return nil
	}
	if f.err == nil {
		f.err = err
	}
	_ = f.Close()
	return err
}

// Write writes data to the temporary file
func (f *File) Write(d []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := f.tmpFile.Write(d)
	return n, f.fail(err)
}

func (f *File) WriteString(s string) (int, error) {
	return f.Write([]byte(s))
}

func (f *File) alreadyClosed() bool {
	return f.tmpFile == nil
}

// RemoveIfNotClosed removes the temp file if we didn't Close
// the file yet. Destination file is not touched.
// Meant to be used with defer to cleanup after a panic or an early
// return. After Close it's a no-op.
func (f *File) RemoveIfNotClosed() {
	if f == nil || f.alreadyClosed() {
		return
	}
	f.err = ErrCancelled
	_ = f.Close()
}

// Close flushes the temporary file and renames it to destination.
// If any write failed, temporary file is deleted and destination is
// left as it was. Can be called multiple times, returns the first error.
func (f *File) Close() error {
	if f.alreadyClosed() {
		return f.err
	}
	tmpFile := f.tmpFile
	f.tmpFile = nil

	// https://www.joeshaw.org/dont-defer-close-on-writable-files/
	errSync := tmpFile.Sync()
	errClose := tmpFile.Close()

	didRename := false
	defer func() {
		if !didRename {
			_ = os.Remove(f.tmpPath)
		}
	}()

	if f.err != nil {
		return f.err
	}

	err := errSync
	if err == nil {
		err = errClose
	}
	if err == nil {
		err = os.Chmod(f.tmpPath, f.perm)
	}
	if err == nil {
		// over-writes dstPath if it exists
		err = os.Rename(f.tmpPath, f.dstPath)
		didRename = err == nil
	}
	if didRename {
		// sync directory so that rename survives a crash.
		// a nice to have, so errors are ignored
		if fdir, _ := os.Open(f.dir); fdir != nil {
			_ = fdir.Sync()
			_ = fdir.Close()
		}
	}
	f.err = err
	return err
}

// WriteFile atomically replaces path with data
func WriteFile(path string, data []byte, perm fs.FileMode) error {
	return WriteWith(path, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// WriteWith atomically replaces path with whatever fn writes.
// If fn returns an error, destination is not modified.
func WriteWith(path string, perm fs.FileMode, fn func(w io.Writer) error) error {
	f, err := New(path)
	if err != nil {
		return err
	}
	defer f.RemoveIfNotClosed()
	f.SetPerm(perm)
	if err = fn(f); err != nil {
		return err
	}
	return f.Close()
}
