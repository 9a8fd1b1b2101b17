package tree

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/helix-collective/s3ts/pkg/blobstore/localdisk"
	"github.com/helix-collective/s3ts/pkg/s3tserrors"
)

// newTestStore builds a TreeStore backed by two localdisk stores (one
// standing in for the remote, one for the local cache), the way the
// teacher's higher-level packages test against localdisk rather than a
// mock. chunkSize/compress select the Configuration under test.
func newTestStore(t *testing.T, chunkSize int, compress bool) *TreeStore {
	t.Helper()
	remote, err := localdisk.New(t.TempDir())
	if err != nil {
		t.Fatalf("localdisk.New(remote): %v", err)
	}
	cache, err := localdisk.New(t.TempDir())
	if err != nil {
		t.Fatalf("localdisk.New(cache): %v", err)
	}
	ts, err := Create(context.Background(), remote, cache, Configuration{ChunkSize: chunkSize, UseCompression: compress})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return ts
}

func writeFile(t *testing.T, dir, relPath, content string) {
	t.Helper()
	full := filepath.Join(dir, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatalf("mkdir %q: %v", full, err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		t.Fatalf("write %q: %v", full, err)
	}
}

func fixedTime() Time { return NewTime(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) }

func TestCreateRejectsDoubleInit(t *testing.T) {
	remote, err := localdisk.New(t.TempDir())
	if err != nil {
		t.Fatalf("localdisk.New: %v", err)
	}
	cache, err := localdisk.New(t.TempDir())
	if err != nil {
		t.Fatalf("localdisk.New: %v", err)
	}
	ctx := context.Background()
	cfg := Configuration{ChunkSize: 1024, UseCompression: true}
	if _, err := Create(ctx, remote, cache, cfg); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err = Create(ctx, remote, cache, cfg)
	if !errors.Is(err, s3tserrors.ErrAlreadyInitialized) {
		t.Fatalf("second Create: got %v, want ErrAlreadyInitialized", err)
	}
}

func TestOpenRejectsMissingConfig(t *testing.T) {
	remote, err := localdisk.New(t.TempDir())
	if err != nil {
		t.Fatalf("localdisk.New: %v", err)
	}
	cache, err := localdisk.New(t.TempDir())
	if err != nil {
		t.Fatalf("localdisk.New: %v", err)
	}
	_, err = Open(context.Background(), remote, cache)
	if !errors.Is(err, s3tserrors.ErrNotInitialized) {
		t.Fatalf("Open on uninitialized store: got %v, want ErrNotInitialized", err)
	}
}

func TestListRenameRemoveCopy(t *testing.T) {
	ts := newTestStore(t, 1024, true)
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "hello")

	ctx := context.Background()
	if _, err := ts.Upload(ctx, "v1", "first", fixedTime(), dir, UploadOptions{}); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	names, err := ts.ListPackages(ctx)
	if err != nil {
		t.Fatalf("ListPackages: %v", err)
	}
	if len(names) != 1 || names[0] != "v1" {
		t.Fatalf("ListPackages: got %v, want [v1]", names)
	}

	if err := ts.CopyPackage(ctx, "v1", "v1-backup"); err != nil {
		t.Fatalf("CopyPackage: %v", err)
	}
	if _, err := ts.FindPackage(ctx, "v1"); err != nil {
		t.Fatalf("FindPackage(v1) after copy: %v", err)
	}
	if _, err := ts.FindPackage(ctx, "v1-backup"); err != nil {
		t.Fatalf("FindPackage(v1-backup): %v", err)
	}

	if err := ts.Rename(ctx, "v1", "v1-renamed"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if _, err := ts.FindPackage(ctx, "v1"); err == nil {
		t.Fatalf("FindPackage(v1) after rename: got nil error, want not-found")
	}
	if _, err := ts.FindPackage(ctx, "v1-renamed"); err != nil {
		t.Fatalf("FindPackage(v1-renamed): %v", err)
	}

	if err := ts.Remove(ctx, "v1-backup"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	names, err = ts.ListPackages(ctx)
	if err != nil {
		t.Fatalf("ListPackages: %v", err)
	}
	if len(names) != 1 || names[0] != "v1-renamed" {
		t.Fatalf("ListPackages after remove: got %v, want [v1-renamed]", names)
	}
}

func TestStats(t *testing.T) {
	ts := newTestStore(t, 4, false)
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "0123456789")

	ctx := context.Background()
	if _, err := ts.Upload(ctx, "v1", "", fixedTime(), dir, UploadOptions{}); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	stats, err := ts.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.NumPackages != 1 {
		t.Fatalf("NumPackages: got %d, want 1", stats.NumPackages)
	}
	if stats.ApproxChunkBytes != 10 {
		t.Fatalf("ApproxChunkBytes: got %d, want 10", stats.ApproxChunkBytes)
	}
}

func TestHTTPOnlyStoreRefusesRemoteOps(t *testing.T) {
	cache, err := localdisk.New(t.TempDir())
	if err != nil {
		t.Fatalf("localdisk.New: %v", err)
	}
	ts := ForHTTPOnly(cache)
	if _, err := ts.ListPackages(context.Background()); !errors.Is(err, s3tserrors.ErrUnsupported) {
		t.Fatalf("ListPackages on http-only store: got %v, want ErrUnsupported", err)
	}
}
