package tree

import (
	"context"
	"errors"
	"testing"

	"github.com/helix-collective/s3ts/pkg/blobstore"
)

func TestAddURLsOnLocalDiskRemoteIsUnsupported(t *testing.T) {
	ts := newTestStore(t, 8, false)
	ctx := context.Background()
	src := t.TempDir()
	writeFile(t, src, "a.txt", "content")
	pkg, err := ts.Upload(ctx, "v1", "", fixedTime(), src, UploadOptions{})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if err := ts.AddURLs(ctx, pkg, 60); !errors.Is(err, blobstore.ErrUnsupported) {
		t.Fatalf("got %v, want blobstore.ErrUnsupported", err)
	}
}

// presignStubStore wraps a blobstore.Store and mints a deterministic
// fake "pre-signed" URL, standing in for s3store's real presign client
// so AddURLs's per-chunk rewrite logic can be exercised without network
// access.
type presignStubStore struct {
	blobstore.Store
}

func (s presignStubStore) URL(ctx context.Context, key string, expirySecs int) (string, error) {
	return "https://example.invalid/" + key, nil
}

func TestAddURLsRewritesEveryChunk(t *testing.T) {
	ts := newTestStore(t, 4, false)
	ctx := context.Background()
	src := t.TempDir()
	writeFile(t, src, "a.txt", "01234567")
	pkg, err := ts.Upload(ctx, "v1", "", fixedTime(), src, UploadOptions{})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	ts.remote = presignStubStore{Store: ts.remote}
	if err := ts.AddURLs(ctx, pkg, 3600); err != nil {
		t.Fatalf("AddURLs: %v", err)
	}
	for _, f := range pkg.Files {
		for _, c := range f.Chunks {
			if c.URL == "" {
				t.Fatalf("chunk %s has no URL after AddURLs", c.SHA1)
			}
		}
	}
}
