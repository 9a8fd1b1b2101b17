package tree

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/helix-collective/s3ts/pkg/s3tserrors"
)

// Sync installs pkg into targetDir incrementally using the
// `.s3ts.package` sidecar from a previous install/sync, rewriting only
// the files that changed (spec.md §4.4 "Install (sync / incremental)").
//
// If no sidecar is present, Sync falls back to a fresh install:
// targetDir (if it exists) is removed and recreated first, matching
// the "Empty dir" / "Installed(old), no sidecar" rows of the state
// machine.
func (ts *TreeStore) Sync(ctx context.Context, pkg *Package, targetDir string, opts InstallOptions) error {
	oldPkg, err := readInstalledPackage(targetDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("tree: sync: read sidecar: %w", err)
		}
		if _, statErr := os.Stat(targetDir); statErr == nil {
			if rmErr := os.RemoveAll(targetDir); rmErr != nil {
				return fmt.Errorf("tree: sync: remove stale dir: %w", rmErr)
			}
		}
		if err := ts.Install(ctx, pkg, targetDir, opts); err != nil {
			return err
		}
		return ts.writeInstalledPackage(pkg, targetDir)
	}

	diffPkg, removedPaths := PackageDiff(oldPkg, pkg)

	// Sidecar removal must precede any destructive/new file write, so a
	// crash mid-sync is recovered as "no sidecar" on the next attempt.
	if err := os.Remove(filepath.Join(targetDir, InstalledPackageName)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("tree: sync: remove old sidecar: %w", err)
	}

	if err := removeStalePaths(targetDir, removedPaths); err != nil {
		return fmt.Errorf("tree: sync: remove stale paths: %w", err)
	}

	for _, f := range diffPkg.Files {
		if err := ts.installFileInPlace(ctx, f, targetDir, opts); err != nil {
			return fmt.Errorf("tree: sync: install %q: %w", f.Path, err)
		}
	}

	if err := ts.writeInstalledPackage(pkg, targetDir); err != nil {
		return err
	}
	return ts.writeInstallProperties(pkg, targetDir)
}

// installFileInPlace writes f's content directly to its final path
// (no temp file + rename): acceptable during sync because the tree is
// assumed quiescent and the sidecar is absent for the whole operation.
func (ts *TreeStore) installFileInPlace(ctx context.Context, f PackageFile, targetDir string, opts InstallOptions) error {
	finalPath := filepath.Join(targetDir, filepath.FromSlash(f.Path))
	if err := os.MkdirAll(filepath.Dir(finalPath), 0755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	// A path may have been a directory in the old package (e.g. a
	// install-path swap from "text/text" to "text"); remove it first so
	// the regular file can take its place.
	if fi, err := os.Lstat(finalPath); err == nil && fi.IsDir() {
		if err := os.RemoveAll(finalPath); err != nil {
			return fmt.Errorf("remove stale dir %q: %w", finalPath, err)
		}
	}
	w, err := os.OpenFile(finalPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer w.Close()
	return ts.writeFileChunks(ctx, w, f, opts)
}

// removeStalePaths deletes every path no longer present in the new
// package, then prunes now-empty directories (but never targetDir
// itself).
func removeStalePaths(targetDir string, paths []string) error {
	for _, p := range paths {
		full := filepath.Join(targetDir, filepath.FromSlash(p))
		if err := os.RemoveAll(full); err != nil && !os.IsNotExist(err) {
			return err
		}
		pruneEmptyDirs(targetDir, filepath.Dir(full))
	}
	return nil
}

// pruneEmptyDirs removes dir and its ancestors, stopping at root or at
// the first non-empty directory.
func pruneEmptyDirs(root, dir string) {
	for {
		if dir == root || dir == "." || dir == string(filepath.Separator) {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

func readInstalledPackage(targetDir string) (*Package, error) {
	b, err := os.ReadFile(filepath.Join(targetDir, InstalledPackageName))
	if err != nil {
		return nil, err
	}
	var pkg Package
	if err := json.Unmarshal(b, &pkg); err != nil {
		return nil, fmt.Errorf("%w: %v", s3tserrors.ErrInvalidManifest, err)
	}
	return &pkg, nil
}

func (ts *TreeStore) writeInstalledPackage(pkg *Package, targetDir string) error {
	b, err := json.Marshal(pkg)
	if err != nil {
		return fmt.Errorf("tree: marshal installed package sidecar: %w", err)
	}
	return os.WriteFile(filepath.Join(targetDir, InstalledPackageName), b, 0644)
}
