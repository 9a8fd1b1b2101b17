package tree

import (
	"fmt"
	"strings"

	"github.com/helix-collective/s3ts/pkg/blobstore"
	"github.com/helix-collective/s3ts/pkg/chunk/codec"
)

// Canonical store layout (spec.md §4.3):
//
//	config                              — JSON Configuration
//	trees/<packageName>                 — JSON Package
//	meta/<metaPackageName>              — JSON MetaPackage
//	chunks/raw/<sha1[0:2]>/<sha1[2:]>   — raw chunk bytes
//	chunks/zlib/<sha1[0:2]>/<sha1[2:]>  — deflate-compressed chunk bytes

const (
	configKeyName  = "config"
	treesPrefix    = "trees"
	metaPrefix     = "meta"
	chunksPrefix   = "chunks"
)

func configKey() string { return configKeyName }

func treeKey(name string) string { return blobstore.JoinPath(treesPrefix, name) }

func metaKey(name string) string { return blobstore.JoinPath(metaPrefix, name) }

// chunkKey returns the canonical blob-store key for a chunk of the
// given encoding and uncompressed SHA-1.
func chunkKey(enc codec.Encoding, sha1Hex string) (string, error) {
	if len(sha1Hex) != 40 {
		return "", fmt.Errorf("tree: invalid sha1 %q", sha1Hex)
	}
	return blobstore.JoinPath(chunksPrefix, string(enc), sha1Hex[:2], sha1Hex[2:]), nil
}

// parseChunkKey recovers (encoding, sha1) from a chunk key, the
// reverse of chunkKey, used by flush to recover the live set from a
// listing of chunks/ (spec.md §4.4 "Flush").
func parseChunkKey(key string) (enc codec.Encoding, sha1Hex string, ok bool) {
	parts := blobstore.SplitPath(key)
	if len(parts) != 4 || parts[0] != chunksPrefix {
		return "", "", false
	}
	switch codec.Encoding(parts[1]) {
	case codec.Raw, codec.Zlib:
	default:
		return "", "", false
	}
	sha1Hex = parts[2] + parts[3]
	if len(sha1Hex) != 40 {
		return "", "", false
	}
	return codec.Encoding(parts[1]), sha1Hex, true
}

// chunkKeyBothEncodings returns the raw and zlib keys for sha1Hex, used
// when checking invariant 5 (a chunk exists under at most one encoding
// at a time, but lookup must check both).
func chunkKeyBothEncodings(sha1Hex string) (rawKey, zlibKey string, err error) {
	rawKey, err = chunkKey(codec.Raw, sha1Hex)
	if err != nil {
		return "", "", err
	}
	zlibKey, err = chunkKey(codec.Zlib, sha1Hex)
	if err != nil {
		return "", "", err
	}
	return rawKey, zlibKey, nil
}

func isSidecarName(name string) bool {
	return name == InstallPropertiesName || name == InstalledPackageName
}

// splitVariantName splits a package name of the form "name:variant"
// into its base and variant, per spec.md §3's note that ":" denotes
// variants (the form UploadMany gives its variant packages).
func splitVariantName(name string) (base, variant string, hasVariant bool) {
	idx := strings.IndexByte(name, ':')
	if idx < 0 {
		return name, "", false
	}
	return name[:idx], name[idx+1:], true
}
