package tree

import (
	"context"
	"fmt"

	"github.com/helix-collective/s3ts/pkg/blobstore"
	"github.com/helix-collective/s3ts/pkg/s3tserrors"
)

// ChunkRef identifies a live chunk by its storage encoding and
// uncompressed SHA-1.
type ChunkRef struct {
	Encoding string
	SHA1     string
}

// FlushOptions configures flushLocalCache/flushStore.
type FlushOptions struct {
	// DryRun computes the set of chunks that would be removed without
	// deleting anything.
	DryRun bool
}

// FlushLocalCache removes every chunk in the local cache not
// referenced by any of pkgNames. An empty pkgNames is refused with
// s3tserrors.ErrRefused, since it would otherwise flush the entire
// cache (spec.md §4.4 "Flush").
func (ts *TreeStore) FlushLocalCache(ctx context.Context, pkgNames []string, opts FlushOptions) ([]ChunkRef, error) {
	if len(pkgNames) == 0 {
		return nil, fmt.Errorf("tree: flushLocalCache: %w", s3tserrors.ErrRefused)
	}
	live, err := ts.liveChunkSet(ctx, pkgNames)
	if err != nil {
		return nil, err
	}
	return ts.flush(ctx, ts.cache, live, opts)
}

// FlushStore removes every chunk in the remote store not referenced by
// any package under trees/.
func (ts *TreeStore) FlushStore(ctx context.Context, opts FlushOptions) ([]ChunkRef, error) {
	if err := ts.requireRemote("flushStore"); err != nil {
		return nil, err
	}
	names, err := ts.ListPackages(ctx)
	if err != nil {
		return nil, err
	}
	live, err := ts.liveChunkSet(ctx, names)
	if err != nil {
		return nil, err
	}
	return ts.flush(ctx, ts.remote, live, opts)
}

func (ts *TreeStore) liveChunkSet(ctx context.Context, pkgNames []string) (map[ChunkRef]bool, error) {
	live := make(map[ChunkRef]bool)
	for _, name := range pkgNames {
		pkg, err := ts.FindPackage(ctx, name)
		if err != nil {
			return nil, err
		}
		for _, f := range pkg.Files {
			for _, c := range f.Chunks {
				live[ChunkRef{Encoding: string(c.Encoding), SHA1: c.SHA1}] = true
			}
		}
	}
	return live, nil
}

func (ts *TreeStore) flush(ctx context.Context, store interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Remove(ctx context.Context, key string) error
}, live map[ChunkRef]bool, opts FlushOptions) ([]ChunkRef, error) {
	suffixes, err := store.List(ctx, chunksPrefix)
	if err != nil {
		return nil, fmt.Errorf("tree: flush: list chunks: %w", err)
	}
	var removed []ChunkRef
	for _, suffix := range suffixes {
		key := blobstore.JoinPath(chunksPrefix, suffix)
		enc, sha1Hex, ok := parseChunkKey(key)
		if !ok {
			continue
		}
		ref := ChunkRef{Encoding: string(enc), SHA1: sha1Hex}
		if live[ref] {
			continue
		}
		if !opts.DryRun {
			if err := store.Remove(ctx, key); err != nil {
				return nil, fmt.Errorf("tree: flush: remove %q: %w", key, err)
			}
		}
		removed = append(removed, ref)
	}
	return removed, nil
}
