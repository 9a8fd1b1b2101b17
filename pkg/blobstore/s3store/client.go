package s3store

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewClient builds an *s3.Client using the SDK's standard credential
// and region resolution chain (env vars, shared config, IMDS, ...),
// exactly as the teacher's own v2-SDK code expects an aws.Config to
// already be resolved by the caller. Loading credentials/environment is
// an external concern per spec.md §6; this helper exists only because
// constructing the client itself is part of standing up the remote
// BlobStore.
func NewClient(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("s3store: load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}
