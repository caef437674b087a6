package crudstore

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kjk/recstore/require"
	"github.com/kjk/recstore/snapshot"
	"github.com/kjk/recstore/u"
)

var errTargetBroken = errors.New("target is broken")

// failingTarget fails writes / reads while fail is set
type failingTarget struct {
	snapshot.MemoryTarget
	fail atomic.Bool
}

func (t *failingTarget) WriteSnapshot(ctx context.Context, data []byte) error {
	if t.fail.Load() {
		return errTargetBroken
	}
	return t.MemoryTarget.WriteSnapshot(ctx, data)
}

func (t *failingTarget) ReadSnapshot(ctx context.Context) ([]byte, error) {
	if t.fail.Load() {
		return nil, errTargetBroken
	}
	return t.MemoryTarget.ReadSnapshot(ctx)
}

func addRandomBuses(t *testing.T, s *Store[*Bus], n int, seed int64) {
	t.Helper()
	rnd := rand.New(rand.NewSource(seed))
	for i := 0; i < n; i++ {
		require.True(t, s.Create(newRandomBus(rnd)))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	for _, codec := range []snapshot.Codec{snapshot.JSON, snapshot.Siser} {
		for _, ext := range []string{"", ".gz", ".zst", ".br"} {
			name := "buses." + codec.Name() + ext
			t.Run(name, func(t *testing.T) {
				cfg := Config[*Bus]{
					Path:  filepath.Join(dir, name),
					Codec: codec,
					Name:  "buses",
				}
				s := New(cfg)
				addRandomBuses(t, s, 50, 3)
				err := s.Save(ctx)
				require.NoError(t, err)
				require.True(t, u.FileExists(cfg.Path))

				s2, err := Open(ctx, cfg)
				require.NoError(t, err)
				require.Equal(t, s.ReadAll(), s2.ReadAll())

				// the index is rebuilt
				for b := range s.All() {
					got, ok := s2.Read(b.ID)
					require.True(t, ok)
					require.Equal(t, b, got)
				}
				require.False(t, s2.Create(s.ReadAll()[0]))
			})
		}
	}
}

func TestSaveEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "buses.json")
	s := New(Config[*Bus]{Path: path})
	err := s.Save(ctx)
	require.NoError(t, err)
	d, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "[]", strings.TrimSpace(string(d)))

	s2, err := Open(ctx, Config[*Bus]{Path: path})
	require.NoError(t, err)
	require.Equal(t, 0, s2.Len())
}

func TestOpenWithoutSnapshot(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Config[*Bus]{Target: &snapshot.MemoryTarget{}})
	require.NoError(t, err)
	require.Equal(t, 0, s.Len())

	err = s.Load(ctx)
	require.True(t, errors.Is(err, snapshot.ErrNoSnapshot))
	require.True(t, errors.Is(err, ErrLoad))

	tgt := &failingTarget{}
	tgt.fail.Store(true)
	_, err = Open(ctx, Config[*Bus]{Target: tgt})
	require.True(t, errors.Is(err, errTargetBroken))
}

func TestSaveFailureKeepsRecords(t *testing.T) {
	ctx := context.Background()
	tgt := &failingTarget{}
	s := New(Config[*Bus]{Target: tgt, Name: "buses"})
	addRandomBuses(t, s, 10, 4)
	require.NoError(t, s.Save(ctx))
	before := s.ReadAll()

	tgt.fail.Store(true)
	err := s.Save(ctx)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrSave))
	require.True(t, errors.Is(err, errTargetBroken))
	var saveErr *SaveError
	require.True(t, errors.As(err, &saveErr))
	require.Equal(t, "buses", saveErr.Name)
	require.Equal(t, before, s.ReadAll())

	// the store is still usable
	require.True(t, s.Create(newBusWithID("A")))
	tgt.fail.Store(false)
	require.NoError(t, s.Save(ctx))
	s2, err := Open(ctx, Config[*Bus]{Target: tgt})
	require.NoError(t, err)
	require.Equal(t, 11, s2.Len())
}

func TestFailedFileSaveKeepsPreviousSnapshot(t *testing.T) {
	if u.IsWindows() {
		t.Skip("read-only directories are not enforced on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "data")
	path := filepath.Join(dir, "buses.json")
	s := New(Config[*Bus]{Path: path})
	addRandomBuses(t, s, 5, 5)
	require.NoError(t, s.Save(ctx))
	prev, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, os.Chmod(dir, 0555))
	defer os.Chmod(dir, 0755)
	s.Create(newBusWithID("A"))
	err = s.Save(ctx)
	require.True(t, errors.Is(err, ErrSave))

	d, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, string(prev), string(d))
}

func TestLoadRejectsBadSnapshots(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	tests := []struct {
		name string
		data string
		err  error
	}{
		{"duplicate", `[{"id":"` + id.String() + `"},{"id":"` + id.String() + `"}]`, ErrDuplicateID},
		{"nil id", `[{"model":"Volvo"}]`, ErrNilID},
		{"not json", `not json`, ErrLoad},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tgt := &snapshot.MemoryTarget{}
			s := New(Config[*Bus]{Target: tgt})
			b := newBusWithID("A")
			s.Create(b)

			require.NoError(t, tgt.WriteSnapshot(ctx, []byte(tc.data)))
			err := s.Load(ctx)
			require.True(t, errors.Is(err, tc.err), "err: %v", err)
			require.True(t, errors.Is(err, ErrLoad))
			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr))

			// unchanged
			require.Equal(t, 1, s.Len())
			_, ok := s.Read(b.ID)
			require.True(t, ok)
		})
	}
}

func TestLoadReplaces(t *testing.T) {
	ctx := context.Background()
	tgt := &snapshot.MemoryTarget{}
	s := New(Config[*Bus]{Target: tgt})
	a := newBusWithID("A")
	s.Create(a)
	require.NoError(t, s.Save(ctx))

	b := newBusWithID("B")
	s.Create(b)
	require.NoError(t, s.Load(ctx))
	require.Equal(t, []string{"A"}, models(s.ReadAll()))
	_, ok := s.Read(b.ID)
	require.False(t, ok)
	require.True(t, s.Create(b))
}

func TestSaveSnapshotIsPointInTime(t *testing.T) {
	ctx := context.Background()
	tgt := &blockingTarget{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := New(Config[*Bus]{Target: tgt, Clone: cloneBus})
	a := newBusWithID("A")
	s.Create(a)

	done := make(chan error)
	go func() {
		done <- s.Save(ctx)
	}()
	<-tgt.started
	// the store is not locked while the target is writing
	require.True(t, s.Create(newBusWithID("B")))
	require.True(t, s.Update(&Bus{ID: a.ID, Model: "A2"}))
	close(tgt.release)
	require.NoError(t, <-done)

	var recs []*Bus
	d, err := tgt.ReadSnapshot(ctx)
	require.NoError(t, err)
	require.NoError(t, snapshot.JSON.Unmarshal(d, &recs))
	require.Equal(t, []string{"A"}, models(recs))
}

type blockingTarget struct {
	snapshot.MemoryTarget
	started chan struct{}
	release chan struct{}
}

func (t *blockingTarget) WriteSnapshot(ctx context.Context, data []byte) error {
	close(t.started)
	select {
	case <-t.release:
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return errors.New("timed out waiting for release")
	}
	return t.MemoryTarget.WriteSnapshot(ctx, data)
}

func TestSaveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New(Config[*Bus]{Target: &snapshot.MemoryTarget{}})
	err := s.Save(ctx)
	require.True(t, errors.Is(err, ErrSave))
	require.True(t, errors.Is(err, context.Canceled))
}

func TestAutoSave(t *testing.T) {
	ctx := context.Background()
	tgt := &snapshot.MemoryTarget{}
	s := New(Config[*Bus]{
		Target:        tgt,
		AutoSaveDelay: 20 * time.Millisecond,
	})
	for i := 0; i < 5; i++ {
		s.Create(newBusWithID("A"))
	}
	deadline := time.Now().Add(5 * time.Second)
	for tgt.Writes() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.NoError(t, s.Close())
	// a burst of changes is coalesced
	require.True(t, tgt.Writes() >= 1 && tgt.Writes() < 5, "writes: %d", tgt.Writes())

	s2, err := Open(ctx, Config[*Bus]{Target: tgt})
	require.NoError(t, err)
	require.Equal(t, 5, s2.Len())
}

func TestCloseFlushesAutoSave(t *testing.T) {
	tgt := &failingTarget{}
	s := New(Config[*Bus]{
		Target:        tgt,
		AutoSaveDelay: time.Hour,
	})
	require.NoError(t, s.Close())

	s.Create(newBusWithID("A"))
	require.True(t, s.autoSave.Pending())
	require.NoError(t, s.Close())
	require.False(t, s.autoSave.Pending())
	require.Equal(t, 1, tgt.Writes())

	tgt.fail.Store(true)
	s.Create(newBusWithID("B"))
	err := s.Close()
	require.True(t, errors.Is(err, errTargetBroken))
	// error is reported once
	require.NoError(t, s.Close())

	// changes of missing records don't schedule a save
	s.Update(newBusWithID("C"))
	s.RemoveByID(uuid.New())
	require.False(t, s.autoSave.Pending())
}
