package tree

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"
)

// downloadConcurrency bounds concurrent chunk fetches within one
// Download/DownloadHTTP call.
const downloadConcurrency = 8

// DownloadOptions configures Download/DownloadHTTP.
type DownloadOptions struct {
	DryRun   bool
	Progress ProgressFunc
}

// fetchFunc retrieves the still-encoded bytes for a chunk.
type fetchFunc func(ctx context.Context, c FileChunk) ([]byte, error)

// Download fetches every chunk referenced by pkg into the local cache,
// skipping chunks already cached (spec.md §4.4 "Download").
func (ts *TreeStore) Download(ctx context.Context, pkg *Package, opts DownloadOptions) error {
	if err := ts.requireRemote("download"); err != nil {
		return err
	}
	return ts.downloadChunks(ctx, pkg, opts, func(ctx context.Context, c FileChunk) ([]byte, error) {
		key, err := chunkKey(c.Encoding, c.SHA1)
		if err != nil {
			return nil, err
		}
		stored, err := ts.remote.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("tree: download chunk %s: %w", c.SHA1, err)
		}
		return stored, nil
	})
}

// DownloadHTTP is identical to Download except chunks are fetched via
// GET from chunk.URL (set by AddURLs) instead of from a remote
// BlobStore; no remote BlobStore is required, so this works on an
// HTTP-only TreeStore (spec.md §4.4).
func (ts *TreeStore) DownloadHTTP(ctx context.Context, pkg *Package, opts DownloadOptions) error {
	return ts.downloadChunks(ctx, pkg, opts, func(ctx context.Context, c FileChunk) ([]byte, error) {
		if c.URL == "" {
			return nil, fmt.Errorf("tree: downloadHttp: chunk %s has no url", c.SHA1)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
		if err != nil {
			return nil, fmt.Errorf("tree: downloadHttp: build request: %w", err)
		}
		resp, err := ts.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("tree: downloadHttp: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("tree: downloadHttp: chunk %s: http status %d", c.SHA1, resp.StatusCode)
		}
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("tree: downloadHttp: read body: %w", err)
		}
		return b, nil
	})
}

func (ts *TreeStore) downloadChunks(ctx context.Context, pkg *Package, opts DownloadOptions, fetch fetchFunc) error {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(downloadConcurrency)
	for _, f := range pkg.Files {
		for _, c := range f.Chunks {
			c := c
			g.Go(func() error {
				inCache, err := chunkExistsInCache(gctx, ts.cache, c)
				if err != nil {
					return err
				}
				if inCache {
					mu.Lock()
					reportProgress(opts.Progress, PhaseDownloading, 0, c.Size)
					mu.Unlock()
					return nil
				}
				if opts.DryRun {
					mu.Lock()
					reportProgress(opts.Progress, PhaseDownloading, c.Size, 0)
					mu.Unlock()
					return nil
				}
				stored, err := fetch(gctx, c)
				if err != nil {
					return err
				}
				if _, err := decodeAndVerifyChunk(c, stored); err != nil {
					return err
				}
				key, err := chunkKey(c.Encoding, c.SHA1)
				if err != nil {
					return err
				}
				if err := ts.cache.Put(gctx, key, stored); err != nil {
					return fmt.Errorf("tree: cache chunk %s: %w", c.SHA1, err)
				}
				mu.Lock()
				reportProgress(opts.Progress, PhaseDownloading, c.Size, 0)
				mu.Unlock()
				return nil
			})
		}
	}
	return g.Wait()
}
