package storage

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"
)

// GCSClient writes objects to a Google Cloud Storage bucket. Credentials
// come from the default chain (GOOGLE_APPLICATION_CREDENTIALS, gcloud, or
// the metadata server).
type GCSClient struct {
	client   *storage.Client
	bucket   string
	prefix   string
	metadata map[string]string
	logger   *slog.Logger
}

// NewGCSClient connects and checks that the bucket is accessible.
func NewGCSClient(ctx context.Context, bucketName, prefix string, logger *slog.Logger) (*GCSClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	if _, err := client.Bucket(bucketName).Attrs(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to access bucket %s: %w", bucketName, err)
	}

	logger.Info("GCS client initialised", "bucket", bucketName, "prefix", prefix)
	return &GCSClient{
		client:   client,
		bucket:   bucketName,
		prefix:   prefix,
		metadata: objectMetadata(),
		logger:   logger.With("component", "GCSClient"),
	}, nil
}

// Write uploads data as a single object.
func (c *GCSClient) Write(ctx context.Context, key string, data []byte) error {
	name := objectKey(c.prefix, key)
	w := c.client.Bucket(c.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/vnd.apache.parquet"
	w.Metadata = c.metadata

	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write to GCS object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer for %s: %w", name, err)
	}
	c.logger.Debug("uploaded object", "object", name, "bytes", len(data))
	return nil
}

// Location implements Client.
func (c *GCSClient) Location(key string) string {
	return fmt.Sprintf("gs://%s/%s", c.bucket, objectKey(c.prefix, key))
}

// Close implements Client.
func (c *GCSClient) Close() error {
	return c.client.Close()
}

func objectMetadata() map[string]string {
	return map[string]string{
		"format":    "parquet",
		"generator": "fcasctl",
		"schema":    "causer_pays_v1",
	}
}
