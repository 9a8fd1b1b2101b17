package tree

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestSyncFreshThenIncremental(t *testing.T) {
	ts := newTestStore(t, 10, false)
	ctx := context.Background()

	src1 := t.TempDir()
	writeFile(t, src1, "a.txt", "unchanged-content")
	writeFile(t, src1, "b.txt", "will-be-removed")
	v1, err := ts.Upload(ctx, "v1", "", fixedTime(), src1, UploadOptions{})
	if err != nil {
		t.Fatalf("Upload v1: %v", err)
	}

	target := t.TempDir()
	if err := ts.Sync(ctx, v1, target, InstallOptions{}); err != nil {
		t.Fatalf("Sync (fresh): %v", err)
	}
	if _, err := os.Stat(filepath.Join(target, InstalledPackageName)); err != nil {
		t.Fatalf("sidecar missing after fresh sync: %v", err)
	}

	src2 := t.TempDir()
	writeFile(t, src2, "a.txt", "unchanged-content")
	writeFile(t, src2, "c.txt", "new-file-content")
	v2, err := ts.Upload(ctx, "v2", "", fixedTime(), src2, UploadOptions{})
	if err != nil {
		t.Fatalf("Upload v2: %v", err)
	}

	if err := ts.Sync(ctx, v2, target, InstallOptions{}); err != nil {
		t.Fatalf("Sync (incremental): %v", err)
	}

	if _, err := os.Stat(filepath.Join(target, "b.txt")); !os.IsNotExist(err) {
		t.Fatalf("b.txt should have been removed by sync, stat err: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(target, "c.txt"))
	if err != nil || string(got) != "new-file-content" {
		t.Fatalf("c.txt: got %q, %v", got, err)
	}
	got, err = os.ReadFile(filepath.Join(target, "a.txt"))
	if err != nil || string(got) != "unchanged-content" {
		t.Fatalf("a.txt should be untouched: got %q, %v", got, err)
	}

	res, err := CompareInstall(v2, target)
	if err != nil {
		t.Fatalf("CompareInstall: %v", err)
	}
	if !res.Empty() {
		t.Fatalf("post-sync directory should match v2 exactly, got %+v", res)
	}
}

// TestSyncRecoversFromCrashBetweenSidecarAndPathRemoval simulates a
// crash that lands after the sidecar is removed but before stale paths
// are cleaned up: the sidecar must disappear first, so a retried Sync
// sees "no sidecar" and falls back to a fresh install rather than
// trusting a half-cleaned directory.
func TestSyncRecoversFromCrashBetweenSidecarAndPathRemoval(t *testing.T) {
	ts := newTestStore(t, 10, false)
	ctx := context.Background()

	src1 := t.TempDir()
	writeFile(t, src1, "a.txt", "unchanged-content")
	writeFile(t, src1, "b.txt", "will-be-removed")
	v1, err := ts.Upload(ctx, "v1", "", fixedTime(), src1, UploadOptions{})
	if err != nil {
		t.Fatalf("Upload v1: %v", err)
	}
	target := t.TempDir()
	if err := ts.Sync(ctx, v1, target, InstallOptions{}); err != nil {
		t.Fatalf("Sync (fresh): %v", err)
	}

	src2 := t.TempDir()
	writeFile(t, src2, "a.txt", "unchanged-content")
	writeFile(t, src2, "c.txt", "new-file-content")
	v2, err := ts.Upload(ctx, "v2", "", fixedTime(), src2, UploadOptions{})
	if err != nil {
		t.Fatalf("Upload v2: %v", err)
	}

	// Simulate a crash that got as far as removing the old sidecar but
	// no further: b.txt (stale under v2) is still on disk, c.txt (new
	// under v2) is still missing.
	if err := os.Remove(filepath.Join(target, InstalledPackageName)); err != nil {
		t.Fatalf("simulate crash: remove sidecar: %v", err)
	}
	if _, err := os.Stat(filepath.Join(target, "b.txt")); err != nil {
		t.Fatalf("precondition: b.txt should still be present after simulated crash: %v", err)
	}

	// The retried Sync must recognize the missing sidecar and recover
	// via fresh install rather than incrementally diffing against a
	// package whose installed-state guarantee was already broken.
	if err := ts.Sync(ctx, v2, target, InstallOptions{}); err != nil {
		t.Fatalf("Sync (recovery): %v", err)
	}
	res, err := CompareInstall(v2, target)
	if err != nil {
		t.Fatalf("CompareInstall: %v", err)
	}
	if !res.Empty() {
		t.Fatalf("post-recovery directory should match v2 exactly, got %+v", res)
	}
}

func TestSyncWithNoSidecarFallsBackToFreshInstall(t *testing.T) {
	ts := newTestStore(t, 10, false)
	ctx := context.Background()
	src := t.TempDir()
	writeFile(t, src, "a.txt", "content")
	pkg, err := ts.Upload(ctx, "v1", "", fixedTime(), src, UploadOptions{})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	target := t.TempDir()
	// Simulate a directory with unrelated stale content and no sidecar.
	writeFile(t, target, "stale.txt", "leftover")

	if err := ts.Sync(ctx, pkg, target, InstallOptions{}); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if _, err := os.Stat(filepath.Join(target, "stale.txt")); !os.IsNotExist(err) {
		t.Fatalf("stale.txt should be gone after sidecar-less sync, stat err: %v", err)
	}
	res, err := CompareInstall(pkg, target)
	if err != nil {
		t.Fatalf("CompareInstall: %v", err)
	}
	if !res.Empty() {
		t.Fatalf("got %+v, want exact match", res)
	}
}
