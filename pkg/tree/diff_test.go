package tree

import "testing"

func TestPackageDiff(t *testing.T) {
	p1 := &Package{
		Name: "v1",
		Files: []PackageFile{
			{Path: "a.txt", SHA1: "aaaa"},
			{Path: "b.txt", SHA1: "bbbb"},
			{Path: "removed.txt", SHA1: "cccc"},
		},
	}
	p2 := &Package{
		Name: "v2",
		Files: []PackageFile{
			{Path: "a.txt", SHA1: "aaaa"},      // unchanged
			{Path: "b.txt", SHA1: "bbbb-new"},  // changed
			{Path: "new.txt", SHA1: "dddd"},    // new
		},
	}

	diff, removed := PackageDiff(p1, p2)

	if len(removed) != 1 || removed[0] != "removed.txt" {
		t.Fatalf("removed: got %v, want [removed.txt]", removed)
	}
	paths := map[string]bool{}
	for _, f := range diff.Files {
		paths[f.Path] = true
	}
	if len(paths) != 2 || !paths["b.txt"] || !paths["new.txt"] {
		t.Fatalf("diff files: got %v, want {b.txt, new.txt}", paths)
	}
}

func TestPackageDiffIdentical(t *testing.T) {
	p := &Package{Name: "v1", Files: []PackageFile{{Path: "a.txt", SHA1: "aaaa"}}}
	diff, removed := PackageDiff(p, p)
	if len(diff.Files) != 0 {
		t.Fatalf("diff.Files: got %d, want 0 for identical packages", len(diff.Files))
	}
	if len(removed) != 0 {
		t.Fatalf("removed: got %d, want 0", len(removed))
	}
}
