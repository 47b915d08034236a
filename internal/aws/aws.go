package aws

import (
	"context"
	"fmt"
)

// Client defines the AWS operations used to publish artifacts.
type Client interface {
	VerifyCredentials(ctx context.Context) (*CallerIdentity, error)
	UploadToS3(ctx context.Context, bucket, key string, data []byte) error
	ListKeys(ctx context.Context, bucket, prefix string) ([]string, error)
}

// CallerIdentity holds AWS STS caller identity information.
type CallerIdentity struct {
	Account string
	ARN     string
	UserID  string
}

// PreflightResult describes whether publishing to a bucket can proceed.
type PreflightResult struct {
	Identity       *CallerIdentity
	BucketReadable bool
	ExistingKeys   int
	Errors         []string
}

// OK reports whether every check passed.
func (p *PreflightResult) OK() bool { return len(p.Errors) == 0 }

// Preflight verifies credentials and that the destination prefix can be listed.
func Preflight(ctx context.Context, client Client, bucket, prefix string) (*PreflightResult, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is not configured")
	}
	result := &PreflightResult{}

	identity, err := client.VerifyCredentials(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("AWS credentials are not valid: %v", err))
		return result, nil
	}
	result.Identity = identity

	keys, err := client.ListKeys(ctx, bucket, prefix)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("cannot list s3://%s/%s: %v", bucket, prefix, err))
		return result, nil
	}
	result.BucketReadable = true
	result.ExistingKeys = len(keys)
	return result, nil
}
