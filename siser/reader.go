package siser

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Reader reads blocks written by Writer
type Reader struct {
	r *bufio.Reader

	// hints that the data was written without a timestamp
	// (see Writer.NoTimestamp)
	NoTimestamp bool

	// Data / Name / Timestamp are available after ReadNextData.
	// They are over-written in next ReadNextData.
	Data      []byte
	Name      string
	Timestamp time.Time

	// position of the current block within the reader so that
	// callers can index blocks by offset and seek to them
	CurrRecordPos int64
	// position of the next block
	NextRecordPos int64

	err error
	// true if reached end of file with io.EOF
	done bool
}

// NewReader creates a new reader
func NewReader(r *bufio.Reader) *Reader {
	return &Reader{
		r: r,
	}
}

// Done returns true if we're finished reading from the reader
func (r *Reader) Done() bool {
	return r.err != nil || r.done
}

// Err returns error from last read. io.EOF is not an error.
func (r *Reader) Err() error {
	return r.err
}

type header struct {
	size      int64
	timestamp time.Time
	name      string
}

// parseHeader parses "${size} [${timestamp}] [${name}]"
// (without "--- " prefix and "\n")
func parseHeader(hdr []byte, noTimestamp bool) (*header, error) {
	res := &header{}
	sizeStr, rest, _ := bytes.Cut(hdr, []byte{' '})
	size, err := strconv.ParseInt(string(sizeStr), 10, 64)
	if err != nil || size < 0 {
		return nil, fmt.Errorf("invalid size in header '%s'", hdr)
	}
	res.size = size
	if noTimestamp {
		res.name = string(rest)
		return res, nil
	}
	if len(rest) == 0 {
		// with timestamp, we need at least 2 values
		return nil, fmt.Errorf("missing timestamp in header '%s'", hdr)
	}
	tsStr, name, _ := bytes.Cut(rest, []byte{' '})
	ms, err := strconv.ParseInt(string(tsStr), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp in header '%s'", hdr)
	}
	res.timestamp = TimeFromUnixMillisecond(ms)
	res.name = string(name)
	return res, nil
}

// ReadNextData reads next block. Returns false if there are no more blocks
// or there was an error (check Err()).
func (r *Reader) ReadNextData() bool {
	if r.Done() {
		return false
	}
	r.Name = ""
	r.Timestamp = time.Time{}
	r.CurrRecordPos = r.NextRecordPos

	line, err := r.r.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) == 0 {
			r.done = true
		} else if err == io.EOF {
			r.err = fmt.Errorf("truncated header '%s'", line)
		} else {
			r.err = err
		}
		return false
	}
	recSize := int64(len(line))
	// for backwards compatibility, "--- " prefix is optional
	hdrLine := bytes.TrimPrefix(line[:len(line)-1], hdrPrefix)
	hdr, err := parseHeader(hdrLine, r.NoTimestamp)
	if err != nil {
		r.err = err
		return false
	}
	r.Name = hdr.name
	r.Timestamp = hdr.timestamp

	// re-use r.Data as long as it doesn't grow too much (limit to 1 MB)
	if cap(r.Data) > 1024*1024 || hdr.size > int64(cap(r.Data)) {
		r.Data = make([]byte, hdr.size)
	} else {
		r.Data = r.Data[:hdr.size]
	}
	n, err := io.ReadFull(r.r, r.Data)
	if err != nil {
		r.err = fmt.Errorf("reading %d bytes of data failed with %w", hdr.size, err)
		return false
	}
	recSize += int64(n)

	// skip '\n' padding added by the writer for readability
	if n > 0 && r.Data[n-1] != '\n' {
		if _, err = r.r.Discard(1); err != nil {
			r.err = err
			return false
		}
		recSize++
	}
	r.NextRecordPos += recSize
	return true
}
