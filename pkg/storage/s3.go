package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Client writes objects to an S3 bucket using the multipart uploader.
// Credentials come from the default AWS chain.
type S3Client struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
	metadata map[string]string
	logger   *slog.Logger
}

// NewS3Client loads AWS configuration and checks the bucket is reachable.
func NewS3Client(ctx context.Context, bucketName, prefix, region string, logger *slog.Logger) (*S3Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []func(*config.LoadOptions) error{
		config.WithRetryMode(aws.RetryModeStandard),
		config.WithRetryMaxAttempts(3),
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucketName)}); err != nil {
		return nil, fmt.Errorf("failed to access bucket %s: %w", bucketName, err)
	}

	// Chunk files run to hundreds of megabytes.
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 16 * 1024 * 1024
		u.Concurrency = 3
	})

	logger.Info("S3 client initialised", "bucket", bucketName, "prefix", prefix, "region", cfg.Region)
	return &S3Client{
		client:   client,
		uploader: uploader,
		bucket:   bucketName,
		prefix:   prefix,
		metadata: objectMetadata(),
		logger:   logger.With("component", "S3Client"),
	}, nil
}

// Write uploads data as a single object.
func (c *S3Client) Write(ctx context.Context, key string, data []byte) error {
	name := objectKey(c.prefix, key)
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(c.bucket),
		Key:          aws.String(name),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String("application/vnd.apache.parquet"),
		Metadata:     c.metadata,
		StorageClass: types.StorageClassStandard,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3 %s/%s: %w", c.bucket, name, err)
	}
	c.logger.Debug("uploaded object", "key", name, "bytes", len(data))
	return nil
}

// Location implements Client.
func (c *S3Client) Location(key string) string {
	return fmt.Sprintf("s3://%s/%s", c.bucket, objectKey(c.prefix, key))
}

// Close implements Client.
func (c *S3Client) Close() error {
	return nil
}
