package filerotate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Config struct {
	// called after a file is closed. didRotate is false if it was closed
	// by Close()
	DidClose func(path string, didRotate bool)
	// returns a path of a new file if we should rotate, "" otherwise
	PathIfShouldRotate func(creationTime time.Time, now time.Time) string
	// for tests, defaults to time.Now
	Now func() time.Time
}

// File is an append-only file that switches to a new file
// when Config.PathIfShouldRotate says so. Safe for concurrent use.
type File struct {
	mu sync.Mutex

	// Path is the path of the current file
	Path string

	creationTime time.Time
	config       Config
	file         *os.File
}

func IsSameDay(t1, t2 time.Time) bool {
	return t1.Year() == t2.Year() && t1.YearDay() == t2.YearDay()
}

func New(config *Config) (*File, error) {
	if config == nil {
		return nil, fmt.Errorf("must provide config")
	}
	if config.PathIfShouldRotate == nil {
		return nil, fmt.Errorf("must provide config.PathIfShouldRotate")
	}
	f := &File{
		config: *config,
	}
	if f.config.Now == nil {
		f.config.Now = time.Now
	}
	if err := f.reopenIfNeeded(); err != nil {
		return nil, err
	}
	return f, nil
}

// MakeDailyRotateInDir returns PathIfShouldRotate that creates
// ${dir}/${prefix}YYYY-MM-DD${ext} files
func MakeDailyRotateInDir(dir string, prefix string, ext string) func(time.Time, time.Time) string {
	return func(creationTime time.Time, now time.Time) string {
		if IsSameDay(creationTime, now) {
			return ""
		}
		name := prefix + now.Format("2006-01-02") + ext
		return filepath.Join(dir, name)
	}
}

// NewDaily creates a new file, rotating daily in a given directory
func NewDaily(dir string, prefix string, didClose func(path string, didRotate bool)) (*File, error) {
	config := Config{
		DidClose:           didClose,
		PathIfShouldRotate: MakeDailyRotateInDir(dir, prefix, ".txt"),
	}
	return New(&config)
}

func (f *File) close(didRotate bool) error {
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	if err == nil && f.config.DidClose != nil {
		f.config.DidClose(f.Path, didRotate)
	}
	return err
}

func (f *File) open(path string) error {
	f.Path = path
	f.creationTime = f.config.Now()
	// we can't assume that the dir for the file already exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	var err error
	// os.O_APPEND would make Seek() not work
	f.file, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	_, err = f.file.Seek(0, io.SeekEnd)
	return err
}

func (f *File) reopenIfNeeded() error {
	newPath := f.config.PathIfShouldRotate(f.creationTime, f.config.Now())
	if newPath == "" && f.file != nil {
		return nil
	}
	if newPath == "" {
		// was closed with Close(), re-open the same file
		newPath = f.Path
	}
	if err := f.close(true); err != nil {
		return err
	}
	return f.open(newPath)
}

// Write writes data to the current file, rotating first if needed
func (f *File) Write(d []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.reopenIfNeeded(); err != nil {
		return 0, err
	}
	return f.file.Write(d)
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.close(false)
}

// Flush syncs the file to disk
func (f *File) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return nil
	}
	return f.file.Sync()
}
