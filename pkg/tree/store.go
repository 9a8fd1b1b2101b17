package tree

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/helix-collective/s3ts/internal/xlog"
	"github.com/helix-collective/s3ts/pkg/blobstore"
	"github.com/helix-collective/s3ts/pkg/s3tserrors"
)

// TreeStore orchestrates upload, download, install, sync, verify,
// rename/remove, flush, merged packages, and URL signing across a
// remote BlobStore and a local-cache BlobStore (spec.md §4.4).
type TreeStore struct {
	remote blobstore.Store // nil when the store is HTTP-only
	cache  blobstore.Store
	config Configuration

	httpClient *http.Client
	Log        *xlog.Logger
}

// Create initializes a new store at remote, writing its Configuration.
// It fails with s3tserrors.ErrAlreadyInitialized if config already
// exists there (spec.md §4.4).
func Create(ctx context.Context, remote, cache blobstore.Store, config Configuration) (*TreeStore, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	exists, err := remote.Exists(ctx, configKey())
	if err != nil {
		return nil, fmt.Errorf("tree: check existing config: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("tree: create: %w", s3tserrors.ErrAlreadyInitialized)
	}
	b, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("tree: marshal config: %w", err)
	}
	if err := remote.Put(ctx, configKey(), b); err != nil {
		return nil, fmt.Errorf("tree: write config: %w", err)
	}
	return newStore(remote, cache, config), nil
}

// Open reads an existing store's Configuration from remote. It fails
// with s3tserrors.ErrNotInitialized if no config exists.
func Open(ctx context.Context, remote, cache blobstore.Store) (*TreeStore, error) {
	b, err := remote.Get(ctx, configKey())
	if err != nil {
		return nil, fmt.Errorf("tree: open: %w", s3tserrors.ErrNotInitialized)
	}
	var config Configuration
	if err := json.Unmarshal(b, &config); err != nil {
		return nil, fmt.Errorf("tree: unmarshal config: %w: %v", s3tserrors.ErrInvalidManifest, err)
	}
	return newStore(remote, cache, config), nil
}

// ForHTTPOnly constructs a store with no remote BlobStore; only
// DownloadHTTP and Install/Sync are supported, every other operation
// fails with s3tserrors.ErrUnsupported (spec.md §4.4).
func ForHTTPOnly(cache blobstore.Store) *TreeStore {
	return newStore(nil, cache, Configuration{})
}

func newStore(remote, cache blobstore.Store, config Configuration) *TreeStore {
	return &TreeStore{
		remote:     remote,
		cache:      cache,
		config:     config,
		httpClient: http.DefaultClient,
		Log:        xlog.New("s3ts: "),
	}
}

// Config returns the store's Configuration.
func (ts *TreeStore) Config() Configuration { return ts.config }

func (ts *TreeStore) requireRemote(op string) error {
	if ts.remote == nil {
		return fmt.Errorf("tree: %s: %w", op, s3tserrors.ErrUnsupported)
	}
	return nil
}

// FindPackage reads the package manifest named name from the remote
// store.
func (ts *TreeStore) FindPackage(ctx context.Context, name string) (*Package, error) {
	if err := ts.requireRemote("findPackage"); err != nil {
		return nil, err
	}
	b, err := ts.remote.Get(ctx, treeKey(name))
	if err != nil {
		return nil, fmt.Errorf("tree: find package %q: %w", name, s3tserrors.NewNotFound("package", name))
	}
	var pkg Package
	if err := json.Unmarshal(b, &pkg); err != nil {
		return nil, fmt.Errorf("tree: unmarshal package %q: %w: %v", name, s3tserrors.ErrInvalidManifest, err)
	}
	return &pkg, nil
}

// FindPackageByName implements MetaPackage's PackageLookup interface.
func (ts *TreeStore) FindPackageByName(name string) (*Package, error) {
	return ts.FindPackage(context.Background(), name)
}

// FindMetaPackage reads the metapackage manifest named name.
func (ts *TreeStore) FindMetaPackage(ctx context.Context, name string) (*MetaPackage, error) {
	if err := ts.requireRemote("findMetaPackage"); err != nil {
		return nil, err
	}
	b, err := ts.remote.Get(ctx, metaKey(name))
	if err != nil {
		return nil, fmt.Errorf("tree: find metapackage %q: %w", name, s3tserrors.NewNotFound("metapackage", name))
	}
	var mp MetaPackage
	if err := json.Unmarshal(b, &mp); err != nil {
		return nil, fmt.Errorf("tree: unmarshal metapackage %q: %w: %v", name, s3tserrors.ErrInvalidManifest, err)
	}
	return &mp, nil
}

// Find resolves name as a metapackage first (using metadata for any
// LocalizedPackage components), falling back to a plain package lookup
// when no metapackage of that name exists (spec.md §4.4).
func (ts *TreeStore) Find(ctx context.Context, name string, metadata map[string]string) (*Package, error) {
	mp, err := ts.FindMetaPackage(ctx, name)
	if err == nil {
		return mp.Resolve(ts, metadata)
	}
	return ts.FindPackage(ctx, name)
}

// ListPackages returns the names under trees/.
func (ts *TreeStore) ListPackages(ctx context.Context) ([]string, error) {
	if err := ts.requireRemote("listPackages"); err != nil {
		return nil, err
	}
	names, err := ts.remote.List(ctx, treesPrefix)
	if err != nil {
		return nil, fmt.Errorf("tree: list packages: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// ListMetaPackages returns the names under meta/.
func (ts *TreeStore) ListMetaPackages(ctx context.Context) ([]string, error) {
	if err := ts.requireRemote("listMetaPackages"); err != nil {
		return nil, err
	}
	names, err := ts.remote.List(ctx, metaPrefix)
	if err != nil {
		return nil, fmt.Errorf("tree: list metapackages: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// Remove deletes the package manifest named name. Chunks are not
// reference-counted synchronously; they become flush candidates
// (spec.md §4.4).
func (ts *TreeStore) Remove(ctx context.Context, name string) error {
	if err := ts.requireRemote("remove"); err != nil {
		return err
	}
	if err := ts.remote.Remove(ctx, treeKey(name)); err != nil {
		return fmt.Errorf("tree: remove package %q: %w", name, err)
	}
	return nil
}

// Rename moves a package manifest from `from` to `to`. The
// intermediate state has both keys present, matching invariant 4.
func (ts *TreeStore) Rename(ctx context.Context, from, to string) error {
	if err := ts.requireRemote("rename"); err != nil {
		return err
	}
	pkg, err := ts.FindPackage(ctx, from)
	if err != nil {
		return err
	}
	pkg.Name = to
	b, err := json.Marshal(pkg)
	if err != nil {
		return fmt.Errorf("tree: marshal renamed package: %w", err)
	}
	if err := ts.remote.Put(ctx, treeKey(to), b); err != nil {
		return fmt.Errorf("tree: write renamed package %q: %w", to, err)
	}
	if err := ts.remote.Remove(ctx, treeKey(from)); err != nil {
		return fmt.Errorf("tree: remove old package %q after rename: %w", from, err)
	}
	return nil
}

// CopyPackage writes an existing package's manifest under newName
// without re-chunking, retaining the source manifest (unlike Rename).
// Grounded in the original main.py's cmd_copy, dropped by the
// distillation but not excluded by any Non-goal.
func (ts *TreeStore) CopyPackage(ctx context.Context, name, newName string) error {
	if err := ts.requireRemote("copyPackage"); err != nil {
		return err
	}
	pkg, err := ts.FindPackage(ctx, name)
	if err != nil {
		return err
	}
	pkg.Name = newName
	b, err := json.Marshal(pkg)
	if err != nil {
		return fmt.Errorf("tree: marshal copied package: %w", err)
	}
	if err := ts.remote.Put(ctx, treeKey(newName), b); err != nil {
		return fmt.Errorf("tree: write copied package %q: %w", newName, err)
	}
	return nil
}

func (ts *TreeStore) writePackage(ctx context.Context, pkg *Package) error {
	if err := pkg.Validate(); err != nil {
		return err
	}
	b, err := json.Marshal(pkg)
	if err != nil {
		return fmt.Errorf("tree: marshal package %q: %w", pkg.Name, err)
	}
	if err := ts.remote.Put(ctx, treeKey(pkg.Name), b); err != nil {
		return fmt.Errorf("tree: write package %q: %w", pkg.Name, err)
	}
	return nil
}

func (ts *TreeStore) writeMetaPackage(ctx context.Context, mp *MetaPackage) error {
	b, err := json.Marshal(mp)
	if err != nil {
		return fmt.Errorf("tree: marshal metapackage %q: %w", mp.Name, err)
	}
	if err := ts.remote.Put(ctx, metaKey(mp.Name), b); err != nil {
		return fmt.Errorf("tree: write metapackage %q: %w", mp.Name, err)
	}
	return nil
}

// Stats summarizes a store's contents: package/metapackage counts and
// an approximate total of distinct chunk bytes referenced across all
// packages. Grounded in the original main.py cmd_list/cmd_info
// subcommands, dropped by the distillation but not excluded by any
// Non-goal.
type Stats struct {
	NumPackages      int
	NumMetaPackages  int
	ApproxChunkBytes int64
}

// Stats computes aggregate counts by walking trees/ and meta/.
func (ts *TreeStore) Stats(ctx context.Context) (Stats, error) {
	if err := ts.requireRemote("stats"); err != nil {
		return Stats{}, err
	}
	names, err := ts.ListPackages(ctx)
	if err != nil {
		return Stats{}, err
	}
	metaNames, err := ts.ListMetaPackages(ctx)
	if err != nil {
		return Stats{}, err
	}
	seen := make(map[string]int64)
	for _, name := range names {
		pkg, err := ts.FindPackage(ctx, name)
		if err != nil {
			return Stats{}, err
		}
		for _, f := range pkg.Files {
			for _, c := range f.Chunks {
				seen[c.SHA1] = c.Size
			}
		}
	}
	var total int64
	for _, size := range seen {
		total += size
	}
	return Stats{
		NumPackages:      len(names),
		NumMetaPackages:  len(metaNames),
		ApproxChunkBytes: total,
	}, nil
}
