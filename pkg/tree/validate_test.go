package tree

import (
	"context"
	"testing"

	"github.com/helix-collective/s3ts/pkg/blobstore/localdisk"
)

func TestValidateLocalCacheCleanPasses(t *testing.T) {
	ts := newTestStore(t, 8, true)
	ctx := context.Background()
	src := t.TempDir()
	writeFile(t, src, "a.txt", "clean content here")
	pkg, err := ts.Upload(ctx, "v1", "", fixedTime(), src, UploadOptions{})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if err := ts.Download(ctx, pkg, DownloadOptions{}); err != nil {
		t.Fatalf("Download: %v", err)
	}

	corrupt, err := ts.ValidateLocalCache(ctx)
	if err != nil {
		t.Fatalf("ValidateLocalCache: %v", err)
	}
	if len(corrupt) != 0 {
		t.Fatalf("got %d corrupt chunks, want 0: %+v", len(corrupt), corrupt)
	}
}

func TestValidateLocalCacheDetectsCorruption(t *testing.T) {
	remote, err := localdisk.New(t.TempDir())
	if err != nil {
		t.Fatalf("localdisk.New: %v", err)
	}
	cacheDir := t.TempDir()
	cache, err := localdisk.New(cacheDir)
	if err != nil {
		t.Fatalf("localdisk.New: %v", err)
	}
	ctx := context.Background()
	ts, err := Create(ctx, remote, cache, Configuration{ChunkSize: 8, UseCompression: false})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	src := t.TempDir()
	writeFile(t, src, "a.txt", "original content")
	pkg, err := ts.Upload(ctx, "v1", "", fixedTime(), src, UploadOptions{})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if err := ts.Download(ctx, pkg, DownloadOptions{}); err != nil {
		t.Fatalf("Download: %v", err)
	}

	f := pkg.Files[0]
	key, err := chunkKey(f.Chunks[0].Encoding, f.Chunks[0].SHA1)
	if err != nil {
		t.Fatalf("chunkKey: %v", err)
	}
	if err := cache.Put(ctx, key, []byte("tampered bytes!!")); err != nil {
		t.Fatalf("tamper Put: %v", err)
	}

	corrupt, err := ts.ValidateLocalCache(ctx)
	if err != nil {
		t.Fatalf("ValidateLocalCache: %v", err)
	}
	if len(corrupt) != 1 {
		t.Fatalf("got %d corrupt chunks, want 1", len(corrupt))
	}
	if corrupt[0].Key != key {
		t.Fatalf("corrupt key: got %q, want %q", corrupt[0].Key, key)
	}
}
