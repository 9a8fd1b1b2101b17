// Package tree implements the package model and the TreeStore
// orchestration of spec.md §3–§4.6: content-addressed directory-tree
// snapshots, their manifests, and the operations that move them
// between a remote blob store and local disk.
package tree

import (
	"fmt"
	"strings"

	"github.com/helix-collective/s3ts/pkg/chunk/codec"
	"github.com/helix-collective/s3ts/pkg/s3tserrors"
)

// Sidecar file names written alongside installed content, per spec.md §3.
const (
	InstallPropertiesName = ".s3ts.properties"
	InstalledPackageName  = ".s3ts.package"
)

// FileChunk identifies one fragment of a file (spec.md §3).
type FileChunk struct {
	SHA1     string         `json:"sha1"`
	Size     int64          `json:"size"`
	Encoding codec.Encoding `json:"encoding"`
	URL      string         `json:"url,omitempty"`
}

// PackageFile is one file's worth of chunks (spec.md §3).
type PackageFile struct {
	SHA1   string      `json:"sha1"`
	Path   string      `json:"path"`
	Chunks []FileChunk `json:"chunks"`
}

// Size returns the sum of the file's chunk sizes.
func (pf PackageFile) Size() int64 {
	var n int64
	for _, c := range pf.Chunks {
		n += c.Size
	}
	return n
}

// Package is a named immutable snapshot (spec.md §3).
type Package struct {
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	CreationTime Time          `json:"creationTime"`
	Files        []PackageFile `json:"files"`
}

// FileByPath returns the PackageFile at path, if present.
func (p *Package) FileByPath(path string) (PackageFile, bool) {
	for _, f := range p.Files {
		if f.Path == path {
			return f, true
		}
	}
	return PackageFile{}, false
}

// Validate enforces the invariants spec.md §3 places on a Package:
// non-empty name, unique file paths, relative paths with no ".."
// components, and no zero-length chunks (a zero-byte file has no
// chunks at all) — grounded on the original
// src/s3ts/package.py and src/s3ts/utils.py normalization helpers.
func (p *Package) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: package name must not be empty", s3tserrors.ErrInvalidManifest)
	}
	seen := make(map[string]bool, len(p.Files))
	for _, f := range p.Files {
		if seen[f.Path] {
			return fmt.Errorf("%w: duplicate file path %q", s3tserrors.ErrInvalidManifest, f.Path)
		}
		seen[f.Path] = true
		if err := ValidatePath(f.Path); err != nil {
			return err
		}
		for _, c := range f.Chunks {
			if c.Size == 0 {
				return fmt.Errorf("%w: file %q has a zero-length chunk", s3tserrors.ErrInvalidManifest, f.Path)
			}
		}
	}
	return nil
}

// ValidatePath rejects absolute paths and paths with unresolved ".."
// components, per spec.md §3's PackageFile.path invariant.
func ValidatePath(p string) error {
	if p == "" {
		return fmt.Errorf("%w: empty file path", s3tserrors.ErrInvalidManifest)
	}
	if strings.HasPrefix(p, "/") {
		return fmt.Errorf("%w: absolute path %q", s3tserrors.ErrInvalidManifest, p)
	}
	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return fmt.Errorf("%w: path %q contains \"..\"", s3tserrors.ErrInvalidManifest, p)
		}
	}
	return nil
}

// NormalizePath joins and normalizes a POSIX-style path: collapses "."
// segments, resolves ".." against preceding segments, and strips
// leading/trailing slashes. It never escapes above the joined root,
// matching the original utils.py normalize/posix-join helper.
func NormalizePath(parts ...string) string {
	joined := strings.Join(parts, "/")
	segments := strings.Split(joined, "/")
	var out []string
	for _, s := range segments {
		switch s {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, s)
		}
	}
	return strings.Join(out, "/")
}

// Configuration is the immutable, store-wide chunking configuration
// written once at store creation (spec.md §3).
type Configuration struct {
	ChunkSize      int  `json:"chunkSize"`
	UseCompression bool `json:"useCompression"`
}

// Validate checks the configuration is usable.
func (c Configuration) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunkSize must be positive, got %d", s3tserrors.ErrInvalidManifest, c.ChunkSize)
	}
	return nil
}

// InstallProperties is the sidecar written to every install directory
// (spec.md §3).
type InstallProperties struct {
	TreeName    string `json:"treeName"`
	InstallTime Time   `json:"installTime"`
}
