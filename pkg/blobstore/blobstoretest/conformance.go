// Package blobstoretest is a conformance suite shared by every
// blobstore.Store implementation, adapted from the teacher repo's
// camlistore.org/pkg/blobserver/storagetest package: one function run
// against a caller-supplied constructor, exercising Put/Get/Exists/
// List/Remove/GetMetadata the same way across backends.
package blobstoretest

import (
	"bytes"
	"context"
	"testing"

	"github.com/helix-collective/s3ts/pkg/blobstore"
)

// New is supplied by the caller; it returns the store under test and
// an optional cleanup func, mirroring storagetest.Opts.New.
type New func(t *testing.T) (store blobstore.Store, cleanup func())

// Test runs the shared conformance suite against the store returned by
// newFn.
func Test(t *testing.T, newFn New) {
	t.Helper()
	store, cleanup := newFn(t)
	if cleanup != nil {
		defer cleanup()
	}
	ctx := context.Background()

	const key = "chunks/raw/ab/cdef0123"
	payload := []byte("hello, s3ts")

	if ok, err := store.Exists(ctx, key); err != nil {
		t.Fatalf("Exists before Put: %v", err)
	} else if ok {
		t.Fatalf("Exists before Put: got true, want false")
	}

	if err := store.Put(ctx, key, payload); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if ok, err := store.Exists(ctx, key); err != nil {
		t.Fatalf("Exists after Put: %v", err)
	} else if !ok {
		t.Fatalf("Exists after Put: got false, want true")
	}

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("Get: got %q, want %q", got, payload)
	}

	md, err := store.GetMetadata(ctx, key)
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if md.Size != int64(len(payload)) {
		t.Fatalf("GetMetadata.Size: got %d, want %d", md.Size, len(payload))
	}

	// Overwrite: Put must be observably atomic and replace content.
	payload2 := []byte("updated content, different length!")
	if err := store.Put(ctx, key, payload2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got2, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get after overwrite: %v", err)
	}
	if !bytes.Equal(got2, payload2) {
		t.Fatalf("Get after overwrite: got %q, want %q", got2, payload2)
	}

	keys, err := store.List(ctx, "chunks/raw/ab")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !containsSuffix(keys, "cdef0123") {
		t.Fatalf("List(chunks/raw/ab): got %v, want to contain %q", keys, "cdef0123")
	}

	if err := store.Remove(ctx, key); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if ok, err := store.Exists(ctx, key); err != nil {
		t.Fatalf("Exists after Remove: %v", err)
	} else if ok {
		t.Fatalf("Exists after Remove: got true, want false")
	}

	// Removing an already-absent key is idempotent, not an error.
	if err := store.Remove(ctx, key); err != nil {
		t.Fatalf("Remove (idempotent): %v", err)
	}

	if _, err := store.Get(ctx, key); err == nil {
		t.Fatalf("Get after Remove: got nil error, want not-found")
	}
}

func containsSuffix(keys []string, suffix string) bool {
	for _, k := range keys {
		if k == suffix {
			return true
		}
	}
	return false
}
