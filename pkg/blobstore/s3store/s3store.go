// Package s3store implements blobstore.Store on top of an AWS S3
// bucket, for use as the remote TreeStore backend. It is adapted from
// the teacher repo's camlistore.org/pkg/blobserver/s3 package, updated
// to the same aws-sdk-go-v2 APIs the teacher's own remove.go/fetch-era
// code already uses (rather than the older, retired v1 SDK bucket-
// location-preflight dance in s3_preflight.go — see DESIGN.md).
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/helix-collective/s3ts/pkg/blobstore"
	"github.com/helix-collective/s3ts/pkg/s3tserrors"
)

// maxDeleteBatch is the maximum number of objects accepted by a single
// S3 DeleteObjects call, matching the teacher's remove.go constant.
const maxDeleteBatch = 1000

// Store is a blobstore.Store backed by a single S3 bucket, optionally
// confined to a key prefix so that one bucket can host multiple
// independent TreeStores (spec.md §4.1).
type Store struct {
	client       *s3.Client
	presignC     *s3.PresignClient
	bucket       string
	dirPrefix    string // empty, or ends with "/"
}

// New returns a Store for bucket using client, optionally scoping every
// key under dirPrefix.
func New(client *s3.Client, bucket, dirPrefix string) *Store {
	if dirPrefix != "" {
		dirPrefix = blobstore.JoinPath(dirPrefix) + "/"
	}
	return &Store{
		client:    client,
		presignC:  s3.NewPresignClient(client),
		bucket:    bucket,
		dirPrefix: dirPrefix,
	}
}

func (s *Store) objectKey(key string) string {
	return s.dirPrefix + key
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("s3store: head %q: %w", key, err)
	}
	return true, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, s3tserrors.NewNotFound("blob key", key)
		}
		return nil, fmt.Errorf("s3store: get %q: %w", key, err)
	}
	defer out.Body.Close()
	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3store: read body %q: %w", key, err)
	}
	return b, nil
}

func (s *Store) Put(ctx context.Context, key string, b []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
		Body:   bytes.NewReader(b),
	})
	if err != nil {
		return fmt.Errorf("s3store: put %q: %w", key, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("s3store: remove %q: %w", key, err)
	}
	return nil
}

// RemoveBatch removes many keys in the fewest possible DeleteObjects
// calls, the way the teacher's remove.go batches at maxDeleteBatch.
func (s *Store) RemoveBatch(ctx context.Context, keys []string) error {
	var errs []error
	for len(keys) != 0 {
		n := maxDeleteBatch
		if n > len(keys) {
			n = len(keys)
		}
		batch := keys[:n]
		objs := make([]types.ObjectIdentifier, len(batch))
		for i, k := range batch {
			objs[i] = types.ObjectIdentifier{Key: aws.String(s.objectKey(k))}
		}
		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: objs},
		})
		if err != nil {
			return fmt.Errorf("s3store: delete objects: %w", err)
		}
		for _, e := range out.Errors {
			errs = append(errs, fmt.Errorf("%s: %s: %s", aws.ToString(e.Key), aws.ToString(e.Code), aws.ToString(e.Message)))
		}
		keys = keys[n:]
	}
	return errors.Join(errs...)
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	fullPrefix := s.objectKey(prefix)
	if fullPrefix != "" && fullPrefix[len(fullPrefix)-1] != '/' {
		fullPrefix += "/"
	}
	var out []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(fullPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3store: list %q: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			out = append(out, key[len(fullPrefix):])
		}
	}
	sort.Strings(out)
	return out, nil
}

// URL mints a pre-signed GET URL for key, valid for roughly expirySecs
// seconds, using the v2 SDK's presign client — the idiomatic
// replacement for the teacher's retired hand-signed v1 URLs.
func (s *Store) URL(ctx context.Context, key string, expirySecs int) (string, error) {
	req, err := s.presignC.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	}, s3.WithPresignExpires(time.Duration(expirySecs)*time.Second))
	if err != nil {
		return "", fmt.Errorf("s3store: presign %q: %w", key, err)
	}
	return req.URL, nil
}

func (s *Store) GetMetadata(ctx context.Context, key string) (blobstore.Metadata, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return blobstore.Metadata{}, s3tserrors.NewNotFound("blob key", key)
		}
		return blobstore.Metadata{}, fmt.Errorf("s3store: head %q: %w", key, err)
	}
	md := blobstore.Metadata{Size: aws.ToInt64(out.ContentLength)}
	if out.LastModified != nil {
		md.LastModified = *out.LastModified
	}
	return md, nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var noKey *types.NoSuchKey
	return errors.As(err, &noKey)
}
