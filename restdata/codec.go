// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"io"
	"mime"
	"reflect"
	"time"

	"github.com/ugorji/go/codec"
)

// Media types understood by Decode and Encode.
const (
	JSONMediaType = "application/json"
	CBORMediaType = "application/cbor"
)

// CanonicalMediaType maps a media type to the one of JSONMediaType
// or CBORMediaType that encodes it, or returns the empty string if it
// is not supported.
func CanonicalMediaType(mediaType string) string {
	switch mediaType {
	case "application/json", "text/json", "":
		return JSONMediaType
	case "application/x-www-form-urlencoded", "text/plain":
		// what curl -d and friends send for JSON bodies
		return JSONMediaType
	case CBORMediaType:
		return CBORMediaType
	default:
		return ""
	}
}

var mapType = reflect.TypeOf(map[string]interface{}(nil))

// Handle returns a codec handle for a canonical media type.
func Handle(mediaType string) (codec.Handle, error) {
	switch CanonicalMediaType(mediaType) {
	case JSONMediaType:
		json := &codec.JsonHandle{}
		json.MapType = mapType
		return json, nil
	case CBORMediaType:
		cbor := &codec.CborHandle{}
		cbor.MapType = mapType
		if err := cbor.SetExt(reflect.TypeOf(time.Time{}), 0, timeExt{}); err != nil {
			return nil, err
		}
		return cbor, nil
	default:
		return nil, ErrUnsupportedMediaType{Type: mediaType}
	}
}

// Decode tries to decode a restdata object from a reader, such as an
// HTTP request or response.  out must be a pointer type.
func Decode(contentType string, r io.Reader, out interface{}) error {
	mediaType := ""
	if contentType != "" {
		var err error
		mediaType, _, err = mime.ParseMediaType(contentType)
		if err != nil {
			return ErrBadRequest{Err: err}
		}
	}
	h, err := Handle(mediaType)
	if err != nil {
		return err
	}
	return codec.NewDecoder(r, h).Decode(out)
}

// Encode writes v to w in a supported media type.
func Encode(mediaType string, w io.Writer, v interface{}) error {
	h, err := Handle(mediaType)
	if err != nil {
		return err
	}
	return codec.NewEncoder(w, h).Encode(v)
}

// timeExt is a codec extension plugin to encode and decode
// timestamps as RFC 3339 date/time strings (CBOR tag 0).
type timeExt struct{}

func (x timeExt) WriteExt(v interface{}) []byte {
	panic("timeExt.WriteExt not implemented")
}

func (x timeExt) ReadExt(v interface{}, data []byte) {
	panic("timeExt.ReadExt not implemented")
}

func (x timeExt) ConvertExt(v interface{}) interface{} {
	switch t := v.(type) {
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case *time.Time:
		return t.Format(time.RFC3339Nano)
	default:
		panic("timeExt.ConvertExt given a non-time value")
	}
}

func (x timeExt) UpdateExt(dest interface{}, v interface{}) {
	s, ok := v.(string)
	if !ok {
		panic("encoded time must be a string")
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		panic(err)
	}
	*dest.(*time.Time) = t
}
