package tree

import (
	"context"
	"fmt"

	"github.com/helix-collective/s3ts/pkg/blobstore"
	"github.com/helix-collective/s3ts/pkg/chunk"
	"github.com/helix-collective/s3ts/pkg/chunk/codec"
)

// CorruptChunk describes a chunk whose stored bytes don't decode/hash
// to what its key claims.
type CorruptChunk struct {
	Key      string
	Encoding string
	SHA1     string
	Err      error
}

// ValidateLocalCache walks every chunk key in the local cache,
// decompressing per the encoding named in its key and recomputing its
// SHA-1, reporting any mismatch. It does not repair anything (spec.md
// §4.4 "validateLocalCache / validateStore").
func (ts *TreeStore) ValidateLocalCache(ctx context.Context) ([]CorruptChunk, error) {
	return validateChunks(ctx, ts.cache)
}

// ValidateStore is the remote-store analog of ValidateLocalCache.
func (ts *TreeStore) ValidateStore(ctx context.Context) ([]CorruptChunk, error) {
	if err := ts.requireRemote("validateStore"); err != nil {
		return nil, err
	}
	return validateChunks(ctx, ts.remote)
}

func validateChunks(ctx context.Context, store blobstore.Store) ([]CorruptChunk, error) {
	suffixes, err := store.List(ctx, chunksPrefix)
	if err != nil {
		return nil, fmt.Errorf("tree: validate: list chunks: %w", err)
	}
	var corrupt []CorruptChunk
	for _, suffix := range suffixes {
		key := blobstore.JoinPath(chunksPrefix, suffix)
		enc, sha1Hex, ok := parseChunkKey(key)
		if !ok {
			continue
		}
		stored, err := store.Get(ctx, key)
		if err != nil {
			corrupt = append(corrupt, CorruptChunk{Key: key, Encoding: string(enc), SHA1: sha1Hex, Err: err})
			continue
		}
		uncompressed, err := codec.Decode(enc, stored)
		if err != nil {
			corrupt = append(corrupt, CorruptChunk{Key: key, Encoding: string(enc), SHA1: sha1Hex, Err: err})
			continue
		}
		if got := chunk.SHA1Hex(uncompressed); got != sha1Hex {
			corrupt = append(corrupt, CorruptChunk{
				Key: key, Encoding: string(enc), SHA1: sha1Hex,
				Err: fmt.Errorf("sha1 mismatch: key says %s, content hashes to %s", sha1Hex, got),
			})
		}
	}
	return corrupt, nil
}
