// Package storage writes finished chunk files to a destination: a local
// directory, a GCS bucket or an S3 bucket.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
)

// Client stores whole objects under a key relative to its root.
type Client interface {
	Write(ctx context.Context, key string, data []byte) error
	// Location returns a human readable address of key, for logs and results.
	Location(key string) string
	Close() error
}

// Destination types.
const (
	TypeFS  = "FS"
	TypeGCS = "GCS"
	TypeS3  = "S3"
)

// Config selects and configures a Client.
type Config struct {
	Type       string `mapstructure:"type" yaml:"type"`
	LocalPath  string `mapstructure:"local_path" yaml:"local_path,omitempty"`
	Bucket     string `mapstructure:"bucket" yaml:"bucket,omitempty"`
	Prefix     string `mapstructure:"prefix" yaml:"prefix,omitempty"`
	Region     string `mapstructure:"region" yaml:"region,omitempty"`
	MaxRetries int    `mapstructure:"max_retries" yaml:"max_retries,omitempty"`
}

// Validate checks the fields required by the selected type.
func (c Config) Validate() error {
	switch strings.ToUpper(c.Type) {
	case "", TypeFS:
		if c.LocalPath == "" {
			return fmt.Errorf("local_path is required for FS storage type")
		}
	case TypeGCS:
		if c.Bucket == "" {
			return fmt.Errorf("bucket is required for GCS storage type")
		}
	case TypeS3:
		if c.Bucket == "" {
			return fmt.Errorf("bucket is required for S3 storage type")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Type)
	}
	return nil
}

// New builds the client named by cfg.Type, wrapped with retries when
// MaxRetries is positive.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	var (
		client Client
		err    error
	)
	switch strings.ToUpper(cfg.Type) {
	case "", TypeFS:
		client, err = NewLocalFSClient(cfg.LocalPath, logger)
	case TypeGCS:
		client, err = NewGCSClient(ctx, cfg.Bucket, cfg.Prefix, logger)
	case TypeS3:
		client, err = NewS3Client(ctx, cfg.Bucket, cfg.Prefix, cfg.Region, logger)
	}
	if err != nil {
		return nil, err
	}
	if cfg.MaxRetries > 0 {
		client = NewRetryableClient(client, cfg.MaxRetries, logger)
	}
	return client, nil
}

func objectKey(prefix, key string) string {
	return strings.TrimPrefix(path.Join(prefix, key), "/")
}
