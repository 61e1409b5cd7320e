// Package storage provides the object-store adapter used to archive page
// images into a Cloudflare R2 bucket through the S3-compatible API.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// r2Region is the region value R2 expects on signed requests.
const r2Region = "auto"

// Bucket is an S3-compatible object store bound to a single bucket.
type Bucket struct {
	client    *s3.Client
	bucket    string
	publicURL string
	logger    *slog.Logger
}

// BucketOption configures the bucket.
type BucketOption func(*Bucket)

// WithBucketLogger sets a custom logger.
func WithBucketLogger(l *slog.Logger) BucketOption {
	return func(b *Bucket) {
		b.logger = l
	}
}

// WithS3Client sets a pre-built S3 client, bypassing credential resolution.
func WithS3Client(client *s3.Client) BucketOption {
	return func(b *Bucket) {
		b.client = client
	}
}

// NewBucket creates a bucket client for an R2 account. The endpoint is the
// account-scoped R2 endpoint (https://<account>.r2.cloudflarestorage.com)
// and publicURL is the public base under which uploaded keys are served.
func NewBucket(ctx context.Context, endpoint, accessKeyID, secretAccessKey, bucket, publicURL string, opts ...BucketOption) (*Bucket, error) {
	b := &Bucket{
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.client == nil {
		cfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(r2Region),
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("load storage config: %w", err)
		}

		b.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}

	return b, nil
}

// Upload stores an object under key and returns its public URL.
func (b *Bucket) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	url := b.PublicURL(key)
	b.logger.DebugContext(ctx, "uploaded object", "key", key, "url", url)
	return url, nil
}

// Exists reports whether an object is already stored under key.
func (b *Bucket) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "404") {
			return false, nil
		}
		return false, fmt.Errorf("head object %s: %w", key, err)
	}
	return true, nil
}

// Delete removes an object. Deleting a missing key is not an error.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// List returns the keys under the given prefix.
func (b *Bucket) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects %s: %w", prefix, err)
		}
		for _, object := range page.Contents {
			keys = append(keys, aws.ToString(object.Key))
		}
	}

	return keys, nil
}

// PublicURL returns the public URL an uploaded key is served from.
func (b *Bucket) PublicURL(key string) string {
	return b.publicURL + "/" + key
}
