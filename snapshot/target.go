package snapshot

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kjk/recstore/atomicfile"
	"github.com/kjk/recstore/u"
)

var (
	// ErrNoSnapshot is returned by ReadSnapshot when nothing was saved yet
	ErrNoSnapshot = errors.New("no snapshot")

	zeroTime time.Time

	_ Target = &FileTarget{}
	_ Target = &MemoryTarget{}
	_ Target = &compressedTarget{}
)

// Target is where snapshots are written to and read from.
// WriteSnapshot must replace previous snapshot as a whole: a reader
// sees either the old or the new snapshot, never a mix.
type Target interface {
	WriteSnapshot(ctx context.Context, data []byte) error
	ReadSnapshot(ctx context.Context) ([]byte, error)
}

// FileTarget stores snapshot in a local file.
// If Path ends with .gz, .zst or .br the file is compressed.
type FileTarget struct {
	Path string
	// permissions of the file, 0644 if not set
	Perm fs.FileMode
}

func NewFileTarget(path string) *FileTarget {
	return &FileTarget{
		Path: path,
	}
}

func (t *FileTarget) String() string {
	return "file:" + t.Path
}

func (t *FileTarget) WriteSnapshot(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(t.Path), 0755); err != nil {
		return err
	}
	perm := t.Perm
	if perm == 0 {
		perm = atomicfile.DefaultPerm
	}
	c := u.CompressionForPath(t.Path)
	return atomicfile.WriteWith(t.Path, perm, func(w io.Writer) error {
		cw, err := u.NewCompressWriter(w, c)
		if err != nil {
			return err
		}
		if _, err = cw.Write(data); err != nil {
			_ = cw.Close()
			return err
		}
		return cw.Close()
	})
}

func (t *FileTarget) ReadSnapshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, err := u.ReadFileMaybeCompressed(t.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	return d, err
}

// MemoryTarget keeps the last snapshot in memory
type MemoryTarget struct {
	mu     sync.Mutex
	data   []byte
	has    bool
	writes int
}

func (t *MemoryTarget) WriteSnapshot(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data = append([]byte(nil), data...)
	t.has = true
	t.writes++
	return nil
}

func (t *MemoryTarget) ReadSnapshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.has {
		return nil, ErrNoSnapshot
	}
	return append([]byte(nil), t.data...), nil
}

// Writes returns how many snapshots were written
func (t *MemoryTarget) Writes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writes
}

type compressedTarget struct {
	target Target
	c      u.Compression
}

// Compressed wraps a target so that snapshots are compressed before
// writing and decompressed after reading. Useful for remote targets.
func Compressed(target Target, c u.Compression) Target {
	if c == u.CompressionNone {
		return target
	}
	return &compressedTarget{
		target: target,
		c:      c,
	}
}

func (t *compressedTarget) WriteSnapshot(ctx context.Context, data []byte) error {
	d, err := u.CompressData(data, t.c)
	if err != nil {
		return err
	}
	return t.target.WriteSnapshot(ctx, d)
}

func (t *compressedTarget) ReadSnapshot(ctx context.Context) ([]byte, error) {
	d, err := t.target.ReadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return u.DecompressData(d, t.c)
}
