package chunk

import (
	"bytes"
	"strings"
	"testing"

	"github.com/helix-collective/s3ts/pkg/chunk/codec"
)

func TestSplitBasic(t *testing.T) {
	data := []byte(strings.Repeat("a", 47))
	res, err := Split(bytes.NewReader(data), 100, true)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(res.Chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(res.Chunks))
	}
	if res.Chunks[0].Size != 47 {
		t.Fatalf("chunk size: got %d, want 47", res.Chunks[0].Size)
	}
	if res.FileSHA1 != SHA1Hex(data) {
		t.Fatalf("file sha1 mismatch")
	}
}

func TestSplitMultipleChunks(t *testing.T) {
	data := []byte(strings.Repeat("x", 230))
	res, err := Split(bytes.NewReader(data), 100, false)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(res.Chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(res.Chunks))
	}
	sizes := []int64{100, 100, 30}
	for i, c := range res.Chunks {
		if c.Size != sizes[i] {
			t.Fatalf("chunk %d size: got %d, want %d", i, c.Size, sizes[i])
		}
		if c.Encoding != codec.Raw {
			t.Fatalf("chunk %d encoding: got %s, want raw (compression off)", i, c.Encoding)
		}
	}
	sum := int64(0)
	for _, c := range res.Chunks {
		sum += c.Size
	}
	if sum != int64(len(data)) {
		t.Fatalf("chunk sizes sum to %d, want %d", sum, len(data))
	}
}

func TestSplitEmptyFile(t *testing.T) {
	res, err := Split(bytes.NewReader(nil), 100, true)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(res.Chunks) != 0 {
		t.Fatalf("got %d chunks for empty file, want 0", len(res.Chunks))
	}
	if res.FileSHA1 != EmptyFileSHA1() {
		t.Fatalf("empty file sha1: got %s, want %s", res.FileSHA1, EmptyFileSHA1())
	}
}

func TestSplitCompressionMonotonicity(t *testing.T) {
	// Highly compressible data should end up zlib-encoded and smaller.
	data := bytes.Repeat([]byte("compressible-pattern-"), 200)
	res, err := Split(bytes.NewReader(data), len(data), true)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(res.Chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(res.Chunks))
	}
	c := res.Chunks[0]
	if c.Encoding != codec.Zlib {
		t.Fatalf("encoding: got %s, want zlib", c.Encoding)
	}
	if int64(len(c.Stored)) >= c.Size {
		t.Fatalf("stored size %d not smaller than raw size %d", len(c.Stored), c.Size)
	}
	roundTrip, err := codec.Decode(c.Encoding, c.Stored)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(roundTrip, data) {
		t.Fatalf("round trip mismatch")
	}
}

func TestSplitIncompressibleStoresRaw(t *testing.T) {
	// A single byte can never shrink under zlib framing, so even with
	// compression on it must be stored raw, byte for byte.
	data := []byte("a")
	res, err := Split(bytes.NewReader(data), 10, true)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	c := res.Chunks[0]
	if c.Encoding != codec.Raw || !bytes.Equal(c.Stored, data) {
		t.Fatalf("got encoding %s with %d stored bytes, want raw with the input bytes", c.Encoding, len(c.Stored))
	}
}

func TestRejectsNonPositiveChunkSize(t *testing.T) {
	if _, err := Split(bytes.NewReader([]byte("x")), 0, false); err == nil {
		t.Fatalf("Split with chunkSize=0: got nil error, want error")
	}
}
