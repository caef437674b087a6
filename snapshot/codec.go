package snapshot

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/kjk/recstore/siser"

	"github.com/tidwall/pretty"
)

// Codec serializes a whole collection of records.
// records passed to Marshal is a slice, records passed to Unmarshal
// is a pointer to a slice.
type Codec interface {
	Name() string
	Marshal(records any) ([]byte, error)
	Unmarshal(d []byte, records any) error
}

var (
	// JSON is an indented JSON array of records
	JSON Codec = jsonCodec{}
	// Siser is one siser block per record, each block is indented JSON
	// of the record
	Siser Codec = siserCodec{}
)

// CodecByName returns a codec for "json" or "siser", nil if unknown
func CodecByName(name string) Codec {
	switch name {
	case JSON.Name():
		return JSON
	case Siser.Name():
		return Siser
	}
	return nil
}

// arrays are always one element per line, even if they would fit in a single line
var prettyOpts = &pretty.Options{
	Width:  0,
	Prefix: "",
	Indent: "  ",
}

func prettyJSON(d []byte) []byte {
	return pretty.PrettyOptions(d, prettyOpts)
}

type jsonCodec struct{}

func (jsonCodec) Name() string {
	return "json"
}

func (jsonCodec) Marshal(records any) ([]byte, error) {
	d, err := json.Marshal(records)
	if err != nil {
		return nil, err
	}
	return prettyJSON(d), nil
}

func (jsonCodec) Unmarshal(d []byte, records any) error {
	return json.Unmarshal(d, records)
}

const siserRecordName = "record"

type siserCodec struct{}

func (siserCodec) Name() string {
	return "siser"
}

func (siserCodec) Marshal(records any) ([]byte, error) {
	v := reflect.ValueOf(records)
	if v.Kind() != reflect.Slice {
		return nil, fmt.Errorf("siser: expected a slice, got %T", records)
	}
	var buf bytes.Buffer
	w := siser.NewWriter(&buf)
	// no timestamps so that the same records always serialize the same
	w.NoTimestamp = true
	n := v.Len()
	for i := 0; i < n; i++ {
		d, err := json.Marshal(v.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("siser: marshaling record %d failed with %w", i, err)
		}
		if _, err = w.Write(prettyJSON(d), zeroTime, siserRecordName); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (siserCodec) Unmarshal(d []byte, records any) error {
	pv := reflect.ValueOf(records)
	if pv.Kind() != reflect.Pointer || pv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("siser: expected a pointer to slice, got %T", records)
	}
	sv := pv.Elem()
	elemType := sv.Type().Elem()
	res := reflect.MakeSlice(sv.Type(), 0, 0)

	r := siser.NewReader(bufio.NewReader(bytes.NewReader(d)))
	r.NoTimestamp = true
	for r.ReadNextData() {
		if r.Name != siserRecordName {
			return fmt.Errorf("siser: unexpected block '%s' at offset %d", r.Name, r.CurrRecordPos)
		}
		el := reflect.New(elemType)
		if err := json.Unmarshal(r.Data, el.Interface()); err != nil {
			return fmt.Errorf("siser: record at offset %d: %w", r.CurrRecordPos, err)
		}
		res = reflect.Append(res, el.Elem())
	}
	if err := r.Err(); err != nil {
		return fmt.Errorf("siser: %w", err)
	}
	sv.Set(res)
	return nil
}
