package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const maxRetryDelay = 30 * time.Second

// RetryableClient retries failed writes with exponential backoff.
type RetryableClient struct {
	client     Client
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewRetryableClient wraps client with up to maxRetries extra attempts.
func NewRetryableClient(client Client, maxRetries int, logger *slog.Logger) *RetryableClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryableClient{
		client:     client,
		maxRetries: maxRetries,
		retryDelay: time.Second,
		logger:     logger,
	}
}

// Write implements Client.
func (r *RetryableClient) Write(ctx context.Context, key string, data []byte) error {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			delay := r.retryDelay * time.Duration(1<<(attempt-1))
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
			r.logger.Warn("retrying write", "key", key, "delay", delay, "attempt", attempt, "max_retries", r.maxRetries, "error", lastErr)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := r.client.Write(ctx, key, data)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryableError(err) {
			return err
		}
	}
	return fmt.Errorf("failed after %d retries: %w", r.maxRetries, lastErr)
}

// Location implements Client.
func (r *RetryableClient) Location(key string) string {
	return r.client.Location(key)
}

// Close implements Client.
func (r *RetryableClient) Close() error {
	return r.client.Close()
}

// isRetryableError retries everything except cancellation.
func isRetryableError(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
