// Package blobstore defines the keyed byte-blob store contract shared
// by the local-disk cache and the remote (S3) store, per spec.md §4.1.
//
// It plays the same role in this module that camlistore.org/pkg/blobserver's
// Storage interface plays for Perkeep: a fixed capability set
// implemented by multiple concrete backends, with one optional
// capability (URL minting) that backends may decline to support.
package blobstore

import (
	"context"
	"errors"
	"time"
)

// ErrUnsupported is returned by Store.URL on backends that cannot mint
// pre-signed URLs (e.g. the local-disk store).
var ErrUnsupported = errors.New("blobstore: operation not supported by this backend")

// Metadata is the diagnostic/validation information getMetadata returns
// for a key (spec.md §4.1).
type Metadata struct {
	Size         int64
	LastModified time.Time
}

// Store is a keyed byte-blob store indexed by slash-delimited logical
// paths. Implementations must make Put observably atomic: a concurrent
// Get must never see a torn write.
type Store interface {
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Get returns the bytes stored at key. It returns an error
	// wrapping s3tserrors.ErrNotFound when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes b at key, overwriting any existing value. The write
	// is atomic: implementations use a temp-file-then-rename (or
	// equivalent replace primitive) discipline so no reader ever
	// observes a partial blob.
	Put(ctx context.Context, key string, b []byte) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// List returns the key suffixes found under prefix, relative to
	// prefix. Order is unspecified but stable for the duration of one
	// call.
	List(ctx context.Context, prefix string) ([]string, error)

	// URL mints a pre-signed fetch URL for key, valid for roughly
	// expirySecs seconds. Backends that cannot do this return
	// ErrUnsupported.
	URL(ctx context.Context, key string, expirySecs int) (string, error)

	// GetMetadata returns diagnostic metadata about key without
	// fetching its contents.
	GetMetadata(ctx context.Context, key string) (Metadata, error)
}

// JoinPath joins path segments with a forward slash, matching the
// canonical POSIX manifest-path form required regardless of host OS
// (spec.md §4.1, §6).
func JoinPath(parts ...string) string {
	out := ""
	for _, p := range parts {
		p = trimSlashes(p)
		if p == "" {
			continue
		}
		if out == "" {
			out = p
		} else {
			out = out + "/" + p
		}
	}
	return out
}

// SplitPath splits a slash-delimited key into its components.
func SplitPath(key string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(key); i++ {
		if key[i] == '/' {
			if i > start {
				parts = append(parts, key[start:i])
			}
			start = i + 1
		}
	}
	if start < len(key) {
		parts = append(parts, key[start:])
	}
	return parts
}

func trimSlashes(s string) string {
	for len(s) > 0 && s[0] == '/' {
		s = s[1:]
	}
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
