// Package chunk implements the fixed-size chunker/hasher of spec.md
// §4.2: split a file into chunkSize-byte pieces, hash each chunk and
// the whole file (in one streaming pass), and pick raw/zlib encoding
// per chunk.
//
// The read loop is adapted from the teacher repo's
// camlistore.org/pkg/schema.WriteFileMap: read up to a fixed size into
// a reusable buffer via io.Copy(buf, io.LimitReader(r, n)), hash the
// buffer, and stop on a short/zero read. This module generalizes that
// from "upload one blob per chunk immediately" to "return a descriptor
// and the stored bytes", since here a single PackageFile owns all of
// its chunks directly rather than Perkeep's blobref-tree indirection.
package chunk

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/helix-collective/s3ts/pkg/chunk/codec"
)

// Chunk is one fragment of a file, plus the bytes to store for it.
type Chunk struct {
	SHA1     string // hex, of the uncompressed bytes
	Size     int64  // uncompressed length
	Encoding codec.Encoding
	Stored   []byte // bytes as they should be written to the blob store
}

// Result is the outcome of chunking one file.
type Result struct {
	FileSHA1 string
	Chunks   []Chunk
}

// Split reads r fully in chunkSize-byte pieces and returns the
// resulting chunk descriptors plus the whole file's SHA-1. If
// useCompression is true, each chunk is stored zlib-compressed when
// that is strictly smaller than raw (spec.md §4.2 step 2); otherwise
// every chunk is stored raw.
//
// A zero-byte file produces zero chunks and a file SHA-1 equal to
// SHA1(""), per spec.md §4.2's resolution of the zero-byte-file Open
// Question: no chunks, not one empty chunk.
func Split(r io.Reader, chunkSize int, useCompression bool) (Result, error) {
	if chunkSize <= 0 {
		return Result{}, fmt.Errorf("chunk: chunkSize must be positive, got %d", chunkSize)
	}
	fileHash := sha1.New()
	buf := make([]byte, chunkSize)
	var chunks []Chunk
	for {
		n, readErr := io.ReadFull(r, buf)
		if n > 0 {
			piece := append([]byte(nil), buf[:n]...)
			if _, err := fileHash.Write(piece); err != nil {
				return Result{}, fmt.Errorf("chunk: hash file: %w", err)
			}
			c, err := buildChunk(piece, useCompression)
			if err != nil {
				return Result{}, err
			}
			chunks = append(chunks, c)
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return Result{}, fmt.Errorf("chunk: read: %w", readErr)
		}
	}
	return Result{
		FileSHA1: hex.EncodeToString(fileHash.Sum(nil)),
		Chunks:   chunks,
	}, nil
}

func buildChunk(uncompressed []byte, useCompression bool) (Chunk, error) {
	h := sha1.Sum(uncompressed)
	enc := codec.Raw
	stored := uncompressed
	if useCompression {
		chosen, compressedBytes, err := codec.Encode(uncompressed)
		if err != nil {
			return Chunk{}, fmt.Errorf("chunk: encode: %w", err)
		}
		enc = chosen
		stored = compressedBytes
	}
	return Chunk{
		SHA1:     hex.EncodeToString(h[:]),
		Size:     int64(len(uncompressed)),
		Encoding: enc,
		Stored:   stored,
	}, nil
}

// SHA1Hex computes the SHA-1 hex digest of b, used for re-verifying
// chunk/file content on download and install.
func SHA1Hex(b []byte) string {
	h := sha1.Sum(b)
	return hex.EncodeToString(h[:])
}

// EmptyFileSHA1 is SHA1(""), the file digest for a zero-byte file.
func EmptyFileSHA1() string {
	h := sha1.Sum(nil)
	return hex.EncodeToString(h[:])
}
