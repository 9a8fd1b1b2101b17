package tree

import (
	"context"
	"fmt"

	"github.com/helix-collective/s3ts/pkg/blobstore"
	"github.com/helix-collective/s3ts/pkg/s3tserrors"
)

// Verify checks that every chunk referenced by pkg exists in the
// remote store (spec.md §4.4 "Verify").
func (ts *TreeStore) Verify(ctx context.Context, pkg *Package) error {
	if err := ts.requireRemote("verify"); err != nil {
		return err
	}
	return verifyAgainst(ctx, ts.remote, pkg)
}

// VerifyLocal checks that every chunk referenced by pkg exists in the
// local cache.
func (ts *TreeStore) VerifyLocal(ctx context.Context, pkg *Package) error {
	return verifyAgainst(ctx, ts.cache, pkg)
}

func verifyAgainst(ctx context.Context, store blobstore.Store, pkg *Package) error {
	for _, f := range pkg.Files {
		for _, c := range f.Chunks {
			key, err := chunkKey(c.Encoding, c.SHA1)
			if err != nil {
				return err
			}
			ok, err := store.Exists(ctx, key)
			if err != nil {
				return fmt.Errorf("tree: verify %q: %w", key, err)
			}
			if !ok {
				// invariant 5: check the other encoding too before
				// declaring the chunk missing.
				other, exists, err := chunkExistsAnyEncoding(ctx, store, c.SHA1)
				if err != nil {
					return err
				}
				if !exists {
					return s3tserrors.NewChunkMissing(key)
				}
				_ = other
			}
		}
	}
	return nil
}
