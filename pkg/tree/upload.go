package tree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/helix-collective/s3ts/pkg/chunk"
)

// uploadConcurrency bounds how many chunk uploads run at once within a
// single file, the way the teacher's pkg/blobserver/s3 stat.go bounds
// concurrent Stat calls with a syncutil.Gate; here golang.org/x/sync's
// errgroup.SetLimit plays that role.
const uploadConcurrency = 8

// UploadOptions configures Upload/UploadMany.
type UploadOptions struct {
	DryRun   bool
	Progress ProgressFunc
}

// Upload walks localDir, chunks and uploads every file (deduplicating
// chunks already present under either encoding), and writes the
// resulting Package manifest as name (spec.md §4.4 "Upload").
func (ts *TreeStore) Upload(ctx context.Context, name, description string, creationTime Time, localDir string, opts UploadOptions) (*Package, error) {
	if err := ts.requireRemote("upload"); err != nil {
		return nil, err
	}
	files, err := ts.chunkDirectory(ctx, localDir, opts)
	if err != nil {
		return nil, err
	}
	pkg := &Package{
		Name:         name,
		Description:  description,
		CreationTime: creationTime,
		Files:        files,
	}
	if !opts.DryRun {
		if err := ts.writePackage(ctx, pkg); err != nil {
			return nil, err
		}
	} else if err := pkg.Validate(); err != nil {
		return nil, err
	}
	return pkg, nil
}

// UploadMany uploads commonDir once, then for every immediate
// subdirectory of variantsDir uploads that subdirectory's files and
// writes a package named "<name>:<subdirName>" whose files are the
// union of the common files and that variant's files (spec.md §4.4).
func (ts *TreeStore) UploadMany(ctx context.Context, name, description string, creationTime Time, commonDir, variantsDir string, opts UploadOptions) ([]*Package, error) {
	if err := ts.requireRemote("uploadMany"); err != nil {
		return nil, err
	}
	commonFiles, err := ts.chunkDirectory(ctx, commonDir, opts)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(variantsDir)
	if err != nil {
		return nil, fmt.Errorf("tree: uploadMany: read variants dir %q: %w", variantsDir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var out []*Package
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		variantDir := filepath.Join(variantsDir, e.Name())
		variantFiles, err := ts.chunkDirectory(ctx, variantDir, opts)
		if err != nil {
			return nil, err
		}
		pkg := &Package{
			Name:         name + ":" + e.Name(),
			Description:  description,
			CreationTime: creationTime,
			Files:        mergeFileSets(commonFiles, variantFiles),
		}
		if !opts.DryRun {
			if err := ts.writePackage(ctx, pkg); err != nil {
				return nil, err
			}
		} else if err := pkg.Validate(); err != nil {
			return nil, err
		}
		out = append(out, pkg)
	}
	return out, nil
}

// mergeFileSets unions two file sets by path; entries in b override
// entries in a on collision (variant files win over common files).
func mergeFileSets(a, b []PackageFile) []PackageFile {
	byPath := make(map[string]PackageFile, len(a)+len(b))
	var order []string
	for _, f := range a {
		if _, ok := byPath[f.Path]; !ok {
			order = append(order, f.Path)
		}
		byPath[f.Path] = f
	}
	for _, f := range b {
		if _, ok := byPath[f.Path]; !ok {
			order = append(order, f.Path)
		}
		byPath[f.Path] = f
	}
	out := make([]PackageFile, 0, len(order))
	for _, p := range order {
		out = append(out, byPath[p])
	}
	return out
}

// chunkDirectory walks dir (skipping the install-properties sidecar),
// chunking and uploading every regular file.
func (ts *TreeStore) chunkDirectory(ctx context.Context, dir string, opts UploadOptions) ([]PackageFile, error) {
	var files []PackageFile
	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if info.Name() == InstallPropertiesName {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		posixPath := filepath.ToSlash(rel)
		pf, err := ts.chunkAndUploadFile(ctx, p, posixPath, opts)
		if err != nil {
			return fmt.Errorf("tree: upload %q: %w", posixPath, err)
		}
		files = append(files, pf)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (ts *TreeStore) chunkAndUploadFile(ctx context.Context, localPath, manifestPath string, opts UploadOptions) (PackageFile, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return PackageFile{}, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	res, err := chunk.Split(f, ts.config.ChunkSize, ts.config.UseCompression)
	if err != nil {
		return PackageFile{}, fmt.Errorf("chunk: %w", err)
	}

	chunks := make([]FileChunk, len(res.Chunks))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for i, c := range res.Chunks {
		i, c := i, c
		g.Go(func() error {
			fc := FileChunk{SHA1: c.SHA1, Size: c.Size, Encoding: c.Encoding}
			if opts.DryRun {
				existing, exists, err := chunkExistsAnyEncoding(gctx, ts.remote, c.SHA1)
				if err != nil {
					return err
				}
				if exists {
					fc.Encoding = existing
					mu.Lock()
					reportProgress(opts.Progress, PhaseUploading, 0, c.Size)
					mu.Unlock()
				} else {
					mu.Lock()
					reportProgress(opts.Progress, PhaseUploading, c.Size, 0)
					mu.Unlock()
				}
				chunks[i] = fc
				return nil
			}
			wrote, err := putChunkDedup(gctx, ts.remote, fc, c.Stored)
			if err != nil {
				return err
			}
			mu.Lock()
			if wrote {
				reportProgress(opts.Progress, PhaseUploading, c.Size, 0)
			} else {
				reportProgress(opts.Progress, PhaseUploading, 0, c.Size)
			}
			mu.Unlock()
			chunks[i] = fc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return PackageFile{}, err
	}
	return PackageFile{SHA1: res.FileSHA1, Path: manifestPath, Chunks: chunks}, nil
}
