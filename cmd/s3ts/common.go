package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/helix-collective/s3ts/pkg/blobstore"
	"github.com/helix-collective/s3ts/pkg/blobstore/localdisk"
	"github.com/helix-collective/s3ts/pkg/blobstore/s3store"
	"github.com/helix-collective/s3ts/pkg/cmdmain"
	"github.com/helix-collective/s3ts/pkg/osutil"
	"github.com/helix-collective/s3ts/pkg/tree"
)

// storeFlags are the (bucket, prefix, cache dir) flags shared by every
// mode that touches a TreeStore, the way camtool's modes all share
// -server/-blobdir style flags.
type storeFlags struct {
	bucket  string
	prefix  string
	cache   string
}

func addStoreFlags(flags *flag.FlagSet) *storeFlags {
	sf := &storeFlags{}
	flags.StringVar(&sf.bucket, "bucket", "", "S3 bucket backing the store (required)")
	flags.StringVar(&sf.prefix, "prefix", "", "key prefix within the bucket")
	flags.StringVar(&sf.cache, "cache", "", "local chunk cache directory (default: platform cache dir)")
	return sf
}

func (sf *storeFlags) cacheDir() string {
	if sf.cache != "" {
		return sf.cache
	}
	return osutil.CacheDir()
}

func (sf *storeFlags) remote(ctx context.Context) (blobstore.Store, error) {
	if sf.bucket == "" {
		return nil, fmt.Errorf("-bucket is required")
	}
	client, err := s3store.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to s3: %w", err)
	}
	return s3store.New(client, sf.bucket, sf.prefix), nil
}

func (sf *storeFlags) localCache() (blobstore.Store, error) {
	return localdisk.New(sf.cacheDir())
}

// openStore opens an existing store (fails if the bucket has no config
// written yet).
func (sf *storeFlags) openStore(ctx context.Context) (*tree.TreeStore, error) {
	remote, err := sf.remote(ctx)
	if err != nil {
		return nil, err
	}
	cache, err := sf.localCache()
	if err != nil {
		return nil, err
	}
	return tree.Open(ctx, remote, cache)
}

// nowTime returns the current time wrapped as a tree.Time; CLI
// commands are the one place allowed to call time.Now, since the
// library layer takes creation times as an explicit parameter.
func nowTime() tree.Time {
	return tree.NewTime(time.Now())
}

// progressPrinter returns a tree.ProgressFunc that prints a running
// transferred/cached byte total per phase to cmdmain.Stderr when
// -verbose is set, and a no-op otherwise.
func progressPrinter(verbose bool) tree.ProgressFunc {
	if !verbose {
		return nil
	}
	totals := map[tree.Phase]*struct{ transferred, cached int64 }{}
	return func(phase tree.Phase, transferred, cached int64) {
		t, ok := totals[phase]
		if !ok {
			t = &struct{ transferred, cached int64 }{}
			totals[phase] = t
		}
		t.transferred += transferred
		t.cached += cached
		fmt.Fprintf(cmdmain.Stderr, "%s: %s transferred, %s cached\n",
			phase, humanize.Bytes(uint64(t.transferred)), humanize.Bytes(uint64(t.cached)))
	}
}
