package tree

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/helix-collective/s3ts/pkg/s3tserrors"
)

// SubPackage composes an existing package's files, installed under
// InstallPath (spec.md §4.6).
type SubPackage struct {
	InstallPath string `json:"installPath"`
	PackageName string `json:"packageName"`
}

// LocalizedPackage composes a package chosen at resolution time by
// substituting {key} placeholders in LocalizedPackageName against a
// caller-supplied metadata map, falling back to DefaultPackageName if
// the substituted package does not exist (spec.md §4.6).
type LocalizedPackage struct {
	InstallPath           string `json:"installPath"`
	LocalizedPackageName  string `json:"localizedPackageName"`
	DefaultPackageName    string `json:"defaultPackageName"`
}

// Component is exactly one of SubPackage or LocalizedPackage, encoded
// as a tagged union ({"subPackage": {...}} or {"localizedPackage":
// {...}}), the same dispatch-by-present-key technique the teacher's
// own pkg/schema uses to distinguish blob schema types before
// unmarshaling the rest of the object.
type Component struct {
	SubPackage       *SubPackage       `json:"subPackage,omitempty"`
	LocalizedPackage *LocalizedPackage `json:"localizedPackage,omitempty"`
}

// MarshalJSON emits exactly one of the two tagged keys.
func (c Component) MarshalJSON() ([]byte, error) {
	switch {
	case c.SubPackage != nil && c.LocalizedPackage == nil:
		return json.Marshal(struct {
			SubPackage *SubPackage `json:"subPackage"`
		}{c.SubPackage})
	case c.LocalizedPackage != nil && c.SubPackage == nil:
		return json.Marshal(struct {
			LocalizedPackage *LocalizedPackage `json:"localizedPackage"`
		}{c.LocalizedPackage})
	default:
		return nil, fmt.Errorf("%w: component must set exactly one of subPackage/localizedPackage", s3tserrors.ErrInvalidManifest)
	}
}

// UnmarshalJSON decodes a tagged-union component, rejecting unknown
// kinds and objects that set zero or both of the known keys.
func (c *Component) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: component: %v", s3tserrors.ErrInvalidManifest, err)
	}
	sub, hasSub := raw["subPackage"]
	loc, hasLoc := raw["localizedPackage"]
	switch {
	case hasSub && !hasLoc:
		var sp SubPackage
		if err := json.Unmarshal(sub, &sp); err != nil {
			return fmt.Errorf("%w: subPackage: %v", s3tserrors.ErrInvalidManifest, err)
		}
		c.SubPackage = &sp
		c.LocalizedPackage = nil
	case hasLoc && !hasSub:
		var lp LocalizedPackage
		if err := json.Unmarshal(loc, &lp); err != nil {
			return fmt.Errorf("%w: localizedPackage: %v", s3tserrors.ErrInvalidManifest, err)
		}
		c.LocalizedPackage = &lp
		c.SubPackage = nil
	default:
		var kinds []string
		for k := range raw {
			kinds = append(kinds, k)
		}
		return fmt.Errorf("%w: component has unknown or ambiguous kind (keys: %v)", s3tserrors.ErrInvalidManifest, kinds)
	}
	return nil
}

// MetaPackage is a composition referring to packages by name (spec.md §3, §4.6).
type MetaPackage struct {
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	CreationTime Time        `json:"creationTime"`
	Components   []Component `json:"components"`
}

// PackageLookup resolves a package by name, as TreeStore.FindPackage does.
type PackageLookup interface {
	FindPackageByName(name string) (*Package, error)
}

// Resolve synthesizes a Package from mp by concatenating each
// component's files, with paths rewritten under the component's
// InstallPath. metadata supplies the substitution values for any
// LocalizedPackage components. Path collisions across components are
// not detected here, matching spec.md §4.6's documented
// last-writer-wins behavior.
func (mp *MetaPackage) Resolve(lookup PackageLookup, metadata map[string]string) (*Package, error) {
	out := &Package{
		Name:         mp.Name,
		Description:  mp.Description,
		CreationTime: mp.CreationTime,
	}
	for _, comp := range mp.Components {
		var installPath, pkgName string
		switch {
		case comp.SubPackage != nil:
			installPath = comp.SubPackage.InstallPath
			pkgName = comp.SubPackage.PackageName
		case comp.LocalizedPackage != nil:
			lp := comp.LocalizedPackage
			installPath = lp.InstallPath
			substituted, err := substitutePlaceholders(lp.LocalizedPackageName, metadata)
			if err != nil {
				return nil, err
			}
			if _, err := lookup.FindPackageByName(substituted); err == nil {
				pkgName = substituted
			} else {
				pkgName = lp.DefaultPackageName
			}
		default:
			return nil, fmt.Errorf("%w: component has unknown kind", s3tserrors.ErrInvalidManifest)
		}
		pkg, err := lookup.FindPackageByName(pkgName)
		if err != nil {
			return nil, err
		}
		for _, f := range pkg.Files {
			out.Files = append(out.Files, PackageFile{
				SHA1:   f.SHA1,
				Path:   NormalizePath(installPath, f.Path),
				Chunks: f.Chunks,
			})
		}
	}
	return out, nil
}

// substitutePlaceholders substitutes every {key} occurrence in s with
// metadata[key], failing with InvalidMetadata for any key not present
// in metadata (spec.md Open Question (c): strict substitution, never a
// silently-unsubstituted placeholder).
func substitutePlaceholders(s string, metadata map[string]string) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(s) {
		if s[i] == '{' {
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				return "", fmt.Errorf("%w: unterminated placeholder in %q", s3tserrors.ErrInvalidManifest, s)
			}
			key := s[i+1 : i+end]
			val, ok := metadata[key]
			if !ok {
				return "", s3tserrors.NewInvalidMetadata(key)
			}
			b.WriteString(val)
			i += end + 1
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String(), nil
}
