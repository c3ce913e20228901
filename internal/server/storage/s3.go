package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"docshelf/internal/server/config"
	"docshelf/internal/server/logging"
	"docshelf/internal/server/metrics"
)

// S3Store implements Store using S3 or an S3-compatible service such as MinIO.
type S3Store struct {
	client   *s3.Client
	bucket   string
	endpoint string
	region   string
}

// NewS3Store creates an S3 store and makes sure the bucket exists.
func NewS3Store(ctx context.Context, cfg config.S3Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	store := &S3Store{
		client:   client,
		bucket:   cfg.Bucket,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		region:   cfg.Region,
	}

	if err := store.ensureBucket(ctx); err != nil {
		logging.L().Error("bucket check failed", logging.Err(err))
	}

	return store, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	start := time.Now()
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	_, createErr := s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	metrics.RecordBlobOperation(s.Type(), "create_bucket", time.Since(start), createErr == nil)
	if createErr != nil {
		return fmt.Errorf("bucket %s does not exist and cannot create: %w", s.bucket, createErr)
	}
	logging.L().Info("created S3 bucket", logging.String("bucket", s.bucket))
	return nil
}

// Put uploads content to S3.
func (s *S3Store) Put(ctx context.Context, key string, data io.Reader, size int64, contentType string) (Locator, error) {
	start := time.Now()

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          data,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		metrics.RecordBlobOperation(s.Type(), "put", time.Since(start), false)
		return Locator{}, fmt.Errorf("put object %s: %w", key, err)
	}
	metrics.RecordBlobOperation(s.Type(), "put", time.Since(start), true)

	logging.L().Debug("S3 put object", logging.String("key", key), logging.Int64("size", size))
	return Locator{URL: s.objectURL(key), PublicID: key}, nil
}

// Delete removes an object from S3. Deleting a missing key succeeds.
func (s *S3Store) Delete(ctx context.Context, publicID string) error {
	start := time.Now()

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(publicID),
	})
	metrics.RecordBlobOperation(s.Type(), "delete", time.Since(start), err == nil)
	if err != nil {
		return fmt.Errorf("delete object %s: %w", publicID, err)
	}

	logging.L().Debug("S3 delete object", logging.String("key", publicID))
	return nil
}

// Type returns "s3".
func (s *S3Store) Type() string { return "s3" }

func (s *S3Store) objectURL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, escaped)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, escaped)
}
