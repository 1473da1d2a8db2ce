// Package s3fetch retrieves AD2CP capture files from S3, either streaming
// them straight into a scan or downloading them for repeated local access.
package s3fetch

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Client provides S3 operations for fetching capture files.
type Client struct {
	s3Client *s3.Client
}

// NewClient creates a new S3 client using default AWS configuration.
func NewClient(ctx context.Context) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &Client{
		s3Client: s3.NewFromConfig(cfg),
	}, nil
}

// NewClientWithConfig creates a new S3 client with a custom AWS config.
func NewClientWithConfig(cfg aws.Config) *Client {
	return &Client{
		s3Client: s3.NewFromConfig(cfg),
	}
}

// S3 returns the underlying S3 client.
func (c *Client) S3() *s3.Client {
	return c.s3Client
}

// StreamObject returns a reader for an S3 object. Scanning a capture
// directly from S3 goes through this: the indexer only reads forward, so
// no local copy is needed.
func (c *Client) StreamObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	resp, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object s3://%s/%s: %w", bucket, key, err)
	}
	return resp.Body, nil
}

// ObjectSize returns the size in bytes of an S3 object.
func (c *Client) ObjectSize(ctx context.Context, bucket, key string) (int64, error) {
	resp, err := c.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("head object s3://%s/%s: %w", bucket, key, err)
	}
	if resp.ContentLength == nil {
		return 0, fmt.Errorf("head object s3://%s/%s: no content length", bucket, key)
	}
	return *resp.ContentLength, nil
}
