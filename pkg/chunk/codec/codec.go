// Package codec implements the raw/zlib encoding selection spec.md
// §4.2 and §4.3 require: a chunk is stored compressed (RFC 1950, via
// the standard library's compress/zlib) only when that is strictly
// smaller than storing it raw. There is no ecosystem replacement for
// "the stdlib implementation of the exact wire format the spec names"
// (see DESIGN.md).
package codec

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// Encoding identifies how a chunk's bytes are stored at rest.
type Encoding string

const (
	Raw  Encoding = "raw"
	Zlib Encoding = "zlib"
)

// Encode chooses the smaller of raw and zlib-compressed forms of
// uncompressed. It returns the encoding chosen and the bytes to store.
func Encode(uncompressed []byte) (Encoding, []byte, error) {
	compressed, err := deflate(uncompressed)
	if err != nil {
		return "", nil, fmt.Errorf("codec: compress: %w", err)
	}
	if len(compressed) < len(uncompressed) {
		return Zlib, compressed, nil
	}
	return Raw, uncompressed, nil
}

// Decode returns the uncompressed bytes for stored, given the encoding
// it was stored under.
func Decode(enc Encoding, stored []byte) ([]byte, error) {
	switch enc {
	case Raw:
		return stored, nil
	case Zlib:
		return inflate(stored)
	default:
		return nil, fmt.Errorf("codec: unknown encoding %q", enc)
	}
}

func deflate(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflate(b []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("codec: zlib reader: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("codec: zlib inflate: %w", err)
	}
	return out, nil
}
