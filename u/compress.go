package u

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// Compression identifies how a snapshot stream is compressed
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
	CompressionBrotli
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionBrotli:
		return "brotli"
	}
	return fmt.Sprintf("Compression(%d)", int(c))
}

// CompressionForPath picks compression based on file extension:
// .gz => gzip, .zst / .zstd => zstd, .br => brotli, anything else => none
// TODO: could sniff file content instead of checking file extension
func CompressionForPath(path string) Compression {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gz":
		return CompressionGzip
	case ".zst", ".zstd":
		return CompressionZstd
	case ".br":
		return CompressionBrotli
	}
	return CompressionNone
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}

// NewCompressWriter wraps w so that data written to the result is compressed.
// Close() must be called to flush compressed data. It doesn't close w.
func NewCompressWriter(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionGzip:
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	case CompressionZstd:
		// in my tests zstd.SpeedBestCompression is much slower and not much
		// better so we stick with the default level
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	case CompressionBrotli:
		return brotli.NewWriterLevel(w, brotli.DefaultCompression), nil
	}
	return nil, fmt.Errorf("unknown compression %s", c)
}

// NewDecompressReader wraps r so that reading from the result returns
// decompressed data. Close() doesn't close r.
func NewDecompressReader(r io.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case CompressionNone:
		return io.NopCloser(r), nil
	case CompressionGzip:
		return gzip.NewReader(r)
	case CompressionZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	case CompressionBrotli:
		return io.NopCloser(brotli.NewReader(r)), nil
	}
	return nil, fmt.Errorf("unknown compression %s", c)
}

func getErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// CompressData compresses d. For CompressionNone returns d unchanged
func CompressData(d []byte, c Compression) ([]byte, error) {
	if c == CompressionNone {
		return d, nil
	}
	var dst bytes.Buffer
	w, err := NewCompressWriter(&dst, c)
	if err != nil {
		return nil, err
	}
	_, err = w.Write(d)
	err2 := w.Close()
	if err = getErr(err, err2); err != nil {
		return nil, err
	}
	return dst.Bytes(), nil
}

// DecompressData is the reverse of CompressData
func DecompressData(d []byte, c Compression) ([]byte, error) {
	if c == CompressionNone {
		return d, nil
	}
	r, err := NewDecompressReader(bytes.NewReader(d), c)
	if err != nil {
		return nil, err
	}
	res, err := io.ReadAll(r)
	err2 := r.Close()
	if err = getErr(err, err2); err != nil {
		return nil, err
	}
	return res, nil
}
