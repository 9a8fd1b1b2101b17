package tree

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestCompareInstallDetectsMissingExtraDiff(t *testing.T) {
	ts := newTestStore(t, 8, false)
	srcDir := t.TempDir()
	writeFile(t, srcDir, "keep.txt", "unchanged")
	writeFile(t, srcDir, "dropped.txt", "will be missing")

	ctx := context.Background()
	pkg, err := ts.Upload(ctx, "v1", "", fixedTime(), srcDir, UploadOptions{})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	installDir := t.TempDir()
	if err := ts.Install(ctx, pkg, installDir, InstallOptions{}); err != nil {
		t.Fatalf("Install: %v", err)
	}

	res, err := CompareInstall(pkg, installDir)
	if err != nil {
		t.Fatalf("CompareInstall: %v", err)
	}
	if !res.Empty() {
		t.Fatalf("fresh install should match exactly, got %+v", res)
	}

	// Mutate the directory: remove one file, add an extra, edit another.
	if err := os.Remove(filepath.Join(installDir, "dropped.txt")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := os.WriteFile(filepath.Join(installDir, "keep.txt"), []byte("mutated content"), 0644); err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if err := os.WriteFile(filepath.Join(installDir, "stray.txt"), []byte("extra"), 0644); err != nil {
		t.Fatalf("write stray: %v", err)
	}

	res, err = CompareInstall(pkg, installDir)
	if err != nil {
		t.Fatalf("CompareInstall after mutation: %v", err)
	}
	if res.Empty() {
		t.Fatalf("mutated install should not compare equal")
	}
	if len(res.Missing) != 1 || res.Missing[0] != "dropped.txt" {
		t.Fatalf("Missing: got %v, want [dropped.txt]", res.Missing)
	}
	if len(res.Extra) != 1 || res.Extra[0] != "stray.txt" {
		t.Fatalf("Extra: got %v, want [stray.txt]", res.Extra)
	}
	if len(res.Diffs) != 1 || res.Diffs[0] != "keep.txt" {
		t.Fatalf("Diffs: got %v, want [keep.txt]", res.Diffs)
	}
}

func TestInstallWritesPropertiesSidecar(t *testing.T) {
	ts := newTestStore(t, 8, false)
	srcDir := t.TempDir()
	writeFile(t, srcDir, "a.txt", "content")

	ctx := context.Background()
	pkg, err := ts.Upload(ctx, "v1", "", fixedTime(), srcDir, UploadOptions{})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	installDir := t.TempDir()
	if err := ts.Install(ctx, pkg, installDir, InstallOptions{}); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if _, err := os.Stat(filepath.Join(installDir, InstallPropertiesName)); err != nil {
		t.Fatalf("properties sidecar missing: %v", err)
	}
}
