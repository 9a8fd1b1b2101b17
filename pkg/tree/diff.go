package tree

// PackageDiff computes the files that changed between p1 and p2, and
// the paths present in p1 that are absent from p2 (spec.md §4.5).
//
// diffPkg.Files holds every file in p2 whose path is new relative to
// p1, plus every file present in both whose SHA-1 differs. removedPaths
// holds every path in p1 absent from p2. diffPkg.Name is
// "p1.Name->p2.Name"; CreationTime is p2's; Description is empty.
func PackageDiff(p1, p2 *Package) (diffPkg *Package, removedPaths []string) {
	p1ByPath := make(map[string]PackageFile, len(p1.Files))
	for _, f := range p1.Files {
		p1ByPath[f.Path] = f
	}
	p2ByPath := make(map[string]bool, len(p2.Files))

	diffPkg = &Package{
		Name:         p1.Name + "->" + p2.Name,
		CreationTime: p2.CreationTime,
	}
	for _, f := range p2.Files {
		p2ByPath[f.Path] = true
		old, existed := p1ByPath[f.Path]
		if !existed || old.SHA1 != f.SHA1 {
			diffPkg.Files = append(diffPkg.Files, f)
		}
	}
	for _, f := range p1.Files {
		if !p2ByPath[f.Path] {
			removedPaths = append(removedPaths, f.Path)
		}
	}
	return diffPkg, removedPaths
}
