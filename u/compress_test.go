package u

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kjk/recstore/require"
)

func TestCompressionForPath(t *testing.T) {
	tests := []struct {
		path string
		exp  Compression
	}{
		{"buses.json", CompressionNone},
		{"buses.json.gz", CompressionGzip},
		{"buses.json.GZ", CompressionGzip},
		{"buses.json.zst", CompressionZstd},
		{"buses.zstd", CompressionZstd},
		{"dir.br/buses.json.br", CompressionBrotli},
		{"dir.gz/buses.json", CompressionNone},
	}
	for _, test := range tests {
		got := CompressionForPath(test.path)
		require.Equal(t, test.exp, got, "path: %s", test.path)
	}
}

func TestCompressRoundTrip(t *testing.T) {
	d := []byte(strings.Repeat(`{"model": "Volvo", "capacity": 42}`+"\n", 200))
	for _, c := range []Compression{CompressionNone, CompressionGzip, CompressionZstd, CompressionBrotli} {
		compressed, err := CompressData(d, c)
		require.NoError(t, err, "compression: %s", c)
		if c != CompressionNone {
			require.True(t, len(compressed) < len(d), "%s didn't compress", c)
		}
		got, err := DecompressData(compressed, c)
		require.NoError(t, err, "compression: %s", c)
		require.True(t, bytes.Equal(d, got), "%s round-trip mismatch", c)
	}
}

func TestReadFileMaybeCompressed(t *testing.T) {
	d := []byte("hello, snapshot\n")
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "a.txt.gz", "a.txt.zst", "a.txt.br"} {
		path := filepath.Join(dir, name)
		compressed, err := CompressData(d, CompressionForPath(path))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, compressed, 0644))
		got, err := ReadFileMaybeCompressed(path)
		require.NoError(t, err)
		require.Equal(t, string(d), string(got))
	}
}

func TestUnknownCompression(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewCompressWriter(&buf, Compression(42))
	require.Error(t, err)
	_, err = NewDecompressReader(&buf, Compression(42))
	require.Error(t, err)
	require.Equal(t, "Compression(42)", Compression(42).String())
}
