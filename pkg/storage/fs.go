package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LocalFSClient writes objects below a base directory.
type LocalFSClient struct {
	basePath string
	logger   *slog.Logger
}

// NewLocalFSClient creates basePath if needed. A leading "~" expands to the
// home directory.
func NewLocalFSClient(basePath string, logger *slog.Logger) (*LocalFSClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if basePath == "~" || strings.HasPrefix(basePath, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		basePath = filepath.Join(home, strings.TrimPrefix(basePath, "~"))
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &LocalFSClient{
		basePath: absPath,
		logger:   logger.With("component", "LocalFSClient"),
	}, nil
}

// BasePath returns the absolute base directory.
func (c *LocalFSClient) BasePath() string {
	return c.basePath
}

// Write stores data atomically. Keys may not escape the base directory.
func (c *LocalFSClient) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := c.resolve(key)
	if err != nil {
		return err
	}
	if err := WriteAtomic(fullPath, data); err != nil {
		return err
	}
	c.logger.Debug("wrote file", "path", fullPath, "bytes", len(data))
	return nil
}

// Location implements Client.
func (c *LocalFSClient) Location(key string) string {
	if p, err := c.resolve(key); err == nil {
		return p
	}
	return filepath.Join(c.basePath, key)
}

func (c *LocalFSClient) resolve(key string) (string, error) {
	cleanKey := filepath.Clean(key)
	if filepath.IsAbs(cleanKey) {
		return "", fmt.Errorf("absolute paths not allowed in key: %s", key)
	}
	fullPath := filepath.Join(c.basePath, cleanKey)
	rel, err := filepath.Rel(c.basePath, fullPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid key path: %s", key)
	}
	return fullPath, nil
}

// Close implements Client.
func (c *LocalFSClient) Close() error {
	return nil
}
