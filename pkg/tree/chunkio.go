package tree

import (
	"context"
	"fmt"

	"github.com/helix-collective/s3ts/pkg/blobstore"
	"github.com/helix-collective/s3ts/pkg/chunk"
	"github.com/helix-collective/s3ts/pkg/chunk/codec"
	"github.com/helix-collective/s3ts/pkg/s3tserrors"
)

// chunkExistsAnyEncoding checks both raw/ and zlib/ for sha1Hex,
// returning the encoding found, per invariant 5 (a chunk lives under
// at most one encoding, but lookup must check both).
func chunkExistsAnyEncoding(ctx context.Context, store blobstore.Store, sha1Hex string) (codec.Encoding, bool, error) {
	rawKey, zlibKey, err := chunkKeyBothEncodings(sha1Hex)
	if err != nil {
		return "", false, err
	}
	if ok, err := store.Exists(ctx, rawKey); err != nil {
		return "", false, fmt.Errorf("tree: check raw chunk %s: %w", sha1Hex, err)
	} else if ok {
		return codec.Raw, true, nil
	}
	if ok, err := store.Exists(ctx, zlibKey); err != nil {
		return "", false, fmt.Errorf("tree: check zlib chunk %s: %w", sha1Hex, err)
	} else if ok {
		return codec.Zlib, true, nil
	}
	return "", false, nil
}

// putChunkDedup writes c to store unless a chunk (of either encoding)
// with the same SHA-1 already exists there, in which case it is
// reused. It returns whether new bytes were written.
func putChunkDedup(ctx context.Context, store blobstore.Store, c FileChunk, stored []byte) (wrote bool, err error) {
	if _, exists, err := chunkExistsAnyEncoding(ctx, store, c.SHA1); err != nil {
		return false, err
	} else if exists {
		return false, nil
	}
	key, err := chunkKey(c.Encoding, c.SHA1)
	if err != nil {
		return false, err
	}
	if err := store.Put(ctx, key, stored); err != nil {
		return false, fmt.Errorf("tree: write chunk %s: %w", c.SHA1, err)
	}
	return true, nil
}

// fetchChunk fetches c from store under the encoding recorded in c,
// then decodes it and verifies its SHA-1.
func fetchChunk(ctx context.Context, store blobstore.Store, c FileChunk) ([]byte, error) {
	key, err := chunkKey(c.Encoding, c.SHA1)
	if err != nil {
		return nil, err
	}
	stored, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("tree: fetch chunk %s: %w", c.SHA1, err)
	}
	return decodeAndVerifyChunk(c, stored)
}

func decodeAndVerifyChunk(c FileChunk, stored []byte) ([]byte, error) {
	uncompressed, err := codec.Decode(c.Encoding, stored)
	if err != nil {
		return nil, fmt.Errorf("tree: decode chunk %s: %w", c.SHA1, err)
	}
	got := chunk.SHA1Hex(uncompressed)
	if got != c.SHA1 {
		return nil, s3tserrors.NewIntegrityError("chunk", c.SHA1, c.SHA1, got)
	}
	return uncompressed, nil
}

// chunkExistsInCache reports whether c is already present in the local
// cache, under either encoding.
func chunkExistsInCache(ctx context.Context, cache blobstore.Store, c FileChunk) (bool, error) {
	_, exists, err := chunkExistsAnyEncoding(ctx, cache, c.SHA1)
	return exists, err
}
