package siserlogger

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kjk/recstore/require"
	"github.com/kjk/recstore/siser"
)

func TestNilFile(t *testing.T) {
	var l *File
	require.NoError(t, l.Write("event", []byte("data")))
	require.Equal(t, "", l.Path())
	require.NoError(t, l.Close())
}

func TestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	l, err := NewDaily(filepath.Join(dir, "events"), "ev-", nil)
	require.NoError(t, err)
	path := l.Path()
	require.True(t, strings.HasPrefix(filepath.Base(path), "ev-"))
	require.True(t, strings.HasSuffix(path, ".txt"))

	require.NoError(t, l.Write("crudstore.save", []byte("records: 3")))
	require.NoError(t, l.Write("crudstore.load", []byte("records: 3\nbytes: 120")))
	require.NoError(t, l.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r := siser.NewReader(bufio.NewReader(f))
	var names []string
	for r.ReadNextData() {
		names = append(names, r.Name)
		require.False(t, r.Timestamp.IsZero())
	}
	require.NoError(t, r.Err())
	require.Equal(t, []string{"crudstore.save", "crudstore.load"}, names)
}
