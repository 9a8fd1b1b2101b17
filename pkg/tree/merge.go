package tree

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// CreateMerged synthesizes a new Package from existing packages with
// subdirectory prefixing: mapping is a map from install-subdirectory
// to existing package name. No chunks are uploaded; this is a pure
// manifest operation (spec.md §4.4 "createMerged").
func (ts *TreeStore) CreateMerged(ctx context.Context, name string, creationTime Time, mapping map[string]string) (*Package, error) {
	if err := ts.requireRemote("createMerged"); err != nil {
		return nil, err
	}
	subdirs := make([]string, 0, len(mapping))
	for subdir := range mapping {
		subdirs = append(subdirs, subdir)
	}
	sort.Strings(subdirs)

	out := &Package{Name: name, CreationTime: creationTime}
	var descLines []string
	for _, subdir := range subdirs {
		pkgName := mapping[subdir]
		sub, err := ts.FindPackage(ctx, pkgName)
		if err != nil {
			return nil, err
		}
		for _, f := range sub.Files {
			out.Files = append(out.Files, PackageFile{
				SHA1:   f.SHA1,
				Path:   NormalizePath(subdir, f.Path),
				Chunks: f.Chunks,
			})
		}
		descLines = append(descLines, fmt.Sprintf(
			"%s (installed at %s, created %s)",
			pkgName, subdir, sub.CreationTime.Format(layoutWithFrac)))
	}
	out.Description = strings.Join(descLines, "\n")

	if err := ts.writePackage(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}
