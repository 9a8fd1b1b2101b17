package tree

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/helix-collective/s3ts/pkg/s3tserrors"
)

// InstallOptions configures Install/Sync.
type InstallOptions struct {
	Progress ProgressFunc
}

// Install reconstructs pkg's files under targetDir from the local
// cache, atomically per file, then writes the InstallProperties
// sidecar (spec.md §4.4 "Install (fresh)").
func (ts *TreeStore) Install(ctx context.Context, pkg *Package, targetDir string, opts InstallOptions) error {
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return fmt.Errorf("tree: install: mkdir %q: %w", targetDir, err)
	}
	for _, f := range pkg.Files {
		if err := ts.installFileAtomic(ctx, f, targetDir, opts); err != nil {
			return err
		}
	}
	return ts.writeInstallProperties(pkg, targetDir)
}

// installFileAtomic writes f's content to a sibling temp file in
// targetDir, then fsyncs and renames it over the final path. Any error
// unlinks the temp file before returning.
func (ts *TreeStore) installFileAtomic(ctx context.Context, f PackageFile, targetDir string, opts InstallOptions) error {
	finalPath := filepath.Join(targetDir, filepath.FromSlash(f.Path))
	if err := os.MkdirAll(filepath.Dir(finalPath), 0755); err != nil {
		return fmt.Errorf("tree: install %q: mkdir: %w", f.Path, err)
	}

	tmpPath := finalPath + ".s3ts-tmp-" + uuid.NewString()
	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("tree: install %q: create temp: %w", f.Path, err)
	}
	defer os.Remove(tmpPath)

	if err := ts.writeFileChunks(ctx, tmp, f, opts); err != nil {
		tmp.Close()
		return fmt.Errorf("tree: install %q: %w", f.Path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("tree: install %q: fsync: %w", f.Path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tree: install %q: close: %w", f.Path, err)
	}
	if err := renameReplace(tmpPath, finalPath); err != nil {
		return fmt.Errorf("tree: install %q: rename: %w", f.Path, err)
	}
	return nil
}

// writeFileChunks streams f's chunks from the local cache into w,
// verifying the running file SHA-1 against f.SHA1.
func (ts *TreeStore) writeFileChunks(ctx context.Context, w *os.File, f PackageFile, opts InstallOptions) error {
	h := sha1.New()
	for _, c := range f.Chunks {
		uncompressed, err := fetchChunk(ctx, ts.cache, c)
		if err != nil {
			return err
		}
		if _, err := w.Write(uncompressed); err != nil {
			return fmt.Errorf("write: %w", err)
		}
		h.Write(uncompressed)
		reportProgress(opts.Progress, PhaseInstalling, c.Size, 0)
	}
	if got := hex.EncodeToString(h.Sum(nil)); got != f.SHA1 {
		return s3tserrors.NewIntegrityError("file", f.Path, f.SHA1, got)
	}
	return nil
}

func (ts *TreeStore) writeInstallProperties(pkg *Package, targetDir string) error {
	props := InstallProperties{TreeName: pkg.Name, InstallTime: NewTime(pkg.CreationTime.Time)}
	b, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("tree: marshal install properties: %w", err)
	}
	return os.WriteFile(filepath.Join(targetDir, InstallPropertiesName), b, 0644)
}

// CompareResult holds the three disjoint sets compareInstall reports.
type CompareResult struct {
	Missing []string
	Extra   []string
	Diffs   []string
}

// Empty reports whether the directory matched pkg exactly.
func (r CompareResult) Empty() bool {
	return len(r.Missing) == 0 && len(r.Extra) == 0 && len(r.Diffs) == 0
}

// CompareInstall compares targetDir's on-disk content against pkg,
// without consulting any remote or cache store for pkg's side (spec.md
// §4.4 "compareInstall").
func CompareInstall(pkg *Package, targetDir string) (CompareResult, error) {
	var res CompareResult
	inPkg := make(map[string]PackageFile, len(pkg.Files))
	for _, f := range pkg.Files {
		inPkg[f.Path] = f
	}

	onDisk := make(map[string]bool)
	err := filepath.Walk(targetDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if info.Name() == InstallPropertiesName || info.Name() == InstalledPackageName {
			return nil
		}
		rel, err := filepath.Rel(targetDir, p)
		if err != nil {
			return err
		}
		onDisk[filepath.ToSlash(rel)] = true
		return nil
	})
	if err != nil {
		return CompareResult{}, fmt.Errorf("tree: compareInstall: walk %q: %w", targetDir, err)
	}

	for path, f := range inPkg {
		if !onDisk[path] {
			res.Missing = append(res.Missing, path)
			continue
		}
		same, err := fileMatches(filepath.Join(targetDir, filepath.FromSlash(path)), f)
		if err != nil {
			return CompareResult{}, err
		}
		if !same {
			res.Diffs = append(res.Diffs, path)
		}
	}
	for path := range onDisk {
		if _, ok := inPkg[path]; !ok {
			res.Extra = append(res.Extra, path)
		}
	}
	return res, nil
}

// fileMatches reports whether the file at localPath has the same
// content as f, by hashing it in 32KB reads and comparing against f's
// whole-file SHA-1: O(file size), memory-bounded.
func fileMatches(localPath string, f PackageFile) (bool, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return false, fmt.Errorf("tree: compareInstall: stat %q: %w", localPath, err)
	}
	if info.Size() != f.Size() {
		return false, nil
	}
	file, err := os.Open(localPath)
	if err != nil {
		return false, fmt.Errorf("tree: compareInstall: open %q: %w", localPath, err)
	}
	defer file.Close()

	h := sha1.New()
	buf := make([]byte, 32*1024)
	for {
		n, rerr := file.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if rerr != nil {
			if rerr != io.EOF {
				return false, fmt.Errorf("tree: compareInstall: read %q: %w", localPath, rerr)
			}
			break
		}
	}
	return hex.EncodeToString(h.Sum(nil)) == f.SHA1, nil
}

// renameReplace renames src over dst, falling back to unlink-then-
// rename on platforms where rename cannot replace an existing file.
func renameReplace(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		if strings.Contains(err.Error(), "file exists") || os.IsExist(err) {
			if rmErr := os.Remove(dst); rmErr != nil && !os.IsNotExist(rmErr) {
				return err
			}
			return os.Rename(src, dst)
		}
		return err
	}
	return nil
}
