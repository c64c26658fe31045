package s3

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// ExpirationRuleID names the lifecycle rule that prunes old dumps.
const ExpirationRuleID = "k8postal-backup-retention"

// Client wraps the S3 client for backup storage.
type Client struct {
	s3     *s3.Client
	region string
}

// Object describes a stored dump.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// NewClient creates a new S3 client for the given endpoint.
func NewClient(ctx context.Context, endpoint, region, accessKey, secretKey string) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	return &Client{s3: client, region: region}, nil
}

// EnsureBucket creates the bucket unless it already exists.
// created reports whether a new bucket was made.
func (c *Client) EnsureBucket(ctx context.Context, bucket string) (created bool, err error) {
	exists, err := c.BucketExists(ctx, bucket)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	_, err = c.s3.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		if isBucketAlreadyOwnedByYou(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	return true, nil
}

// BucketExists checks if a bucket exists and is accessible.
func (c *Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	return true, nil
}

// SetExpiration installs a lifecycle rule deleting objects under prefix
// after days. It replaces any lifecycle configuration already on the bucket.
func (c *Client) SetExpiration(ctx context.Context, bucket, prefix string, days int) error {
	if days <= 0 {
		return fmt.Errorf("retention must be positive, got %d days", days)
	}

	_, err := c.s3.PutBucketLifecycleConfiguration(ctx, &s3.PutBucketLifecycleConfigurationInput{
		Bucket: aws.String(bucket),
		LifecycleConfiguration: &types.BucketLifecycleConfiguration{
			Rules: []types.LifecycleRule{{
				ID:         aws.String(ExpirationRuleID),
				Status:     types.ExpirationStatusEnabled,
				Filter:     &types.LifecycleRuleFilter{Prefix: aws.String(prefix)},
				Expiration: &types.LifecycleExpiration{Days: aws.Int32(int32(days))},
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to set lifecycle on bucket %s: %w", bucket, err)
	}
	return nil
}

// LatestObject returns the most recently modified object under prefix,
// or nil when there is none.
func (c *Client) LatestObject(ctx context.Context, bucket, prefix string) (*Object, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var latest *Object
	paginator := s3.NewListObjectsV2Paginator(c.s3, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in bucket %s: %w", bucket, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil || obj.LastModified == nil {
				continue
			}
			if latest == nil || obj.LastModified.After(latest.LastModified) {
				latest = &Object{
					Key:          *obj.Key,
					Size:         aws.ToInt64(obj.Size),
					LastModified: *obj.LastModified,
				}
			}
		}
	}
	return latest, nil
}

// isBucketAlreadyOwnedByYou checks if the error indicates the bucket exists and is owned by us.
func isBucketAlreadyOwnedByYou(err error) bool {
	if err == nil {
		return false
	}

	var baoby *types.BucketAlreadyOwnedByYou
	if errors.As(err, &baoby) {
		return true
	}

	// S3-compatible services may not return the exact SDK error types.
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "BucketAlreadyOwnedByYou"
	}

	return false
}

// isNotFoundError checks if the error is a not found error.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}

	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchBucket" || code == "404"
	}

	return false
}
