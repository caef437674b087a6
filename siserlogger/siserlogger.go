package siserlogger

import (
	"path/filepath"
	"time"

	"github.com/kjk/recstore/filerotate"
	"github.com/kjk/recstore/siser"
)

// File writes siser blocks to a daily rotated file.
// All methods are safe to call on nil receiver, which makes
// logging a no-op when the logger wasn't created.
type File struct {
	siser *siser.Writer
	file  *filerotate.File
	dir   string
}

// NewDaily creates ${dir}/${prefix}YYYY-MM-DD.txt files.
// didRotateFn is called with the path of a file that was rotated out.
func NewDaily(dir string, prefix string, didRotateFn func(path string)) (*File, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	didClose := func(path string, didRotate bool) {
		if didRotate && didRotateFn != nil {
			didRotateFn(path)
		}
	}
	file, err := filerotate.NewDaily(absDir, prefix, didClose)
	if err != nil {
		return nil, err
	}
	return &File{
		dir:   absDir,
		file:  file,
		siser: siser.NewWriter(file),
	}, nil
}

// Write writes d as a block named name with current time
func (l *File) Write(name string, d []byte) error {
	if l == nil {
		return nil
	}
	_, err := l.siser.Write(d, time.Now(), name)
	return err
}

// Path returns path of the current file
func (l *File) Path() string {
	if l == nil {
		return ""
	}
	return l.file.Path
}

func (l *File) Close() error {
	if l == nil {
		return nil
	}
	_ = l.file.Flush()
	return l.file.Close()
}
