package tree

import (
	"context"
	"fmt"
)

// AddURLs mutates every chunk in pkg to carry a pre-signed fetch URL
// minted by the remote store, valid for roughly expirySecs seconds.
// All other fields are left unchanged. The resulting manifest can be
// serialized and consumed by an HTTP-only TreeStore via DownloadHTTP
// (spec.md §4.4 "Add URLs / presign").
func (ts *TreeStore) AddURLs(ctx context.Context, pkg *Package, expirySecs int) error {
	if err := ts.requireRemote("addUrls"); err != nil {
		return err
	}
	for fi := range pkg.Files {
		for ci := range pkg.Files[fi].Chunks {
			c := &pkg.Files[fi].Chunks[ci]
			key, err := chunkKey(c.Encoding, c.SHA1)
			if err != nil {
				return err
			}
			url, err := ts.remote.URL(ctx, key, expirySecs)
			if err != nil {
				return fmt.Errorf("tree: addUrls: presign %q: %w", key, err)
			}
			c.URL = url
		}
	}
	return nil
}
