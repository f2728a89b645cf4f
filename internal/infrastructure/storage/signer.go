// Package storage signs time-limited read URLs for attachment objects kept
// in S3-compatible or Google Cloud Storage buckets.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	appreceiving "github.com/retailops/ledger/internal/application/receiving"
	infraconfig "github.com/retailops/ledger/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ErrInvalidObjectKey is returned when a stored path cannot be mapped to an
// object key inside the configured bucket.
var ErrInvalidObjectKey = errors.New("invalid object key")

// NewSigner creates the URL signer selected by cfg.Driver
func NewSigner(ctx context.Context, cfg *infraconfig.StorageConfig, logger *zap.Logger) (appreceiving.Signer, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Driver {
	case "s3":
		return NewS3Signer(cfg, WithLogger(logger))
	case "gcs":
		return NewGCSSigner(ctx, cfg, logger)
	case "stub", "":
		logger.Warn("Using stub attachment signer; URLs are not signed")
		return NewStubSigner(cfg.StubBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// ObjectKey maps a stored attachment path to an object key. Paths may be a
// bare key ("receipts/2026/scan.jpg"), a gs:// URI, or an absolute URL whose
// path starts with the bucket name. Keys containing ".." are rejected.
func ObjectKey(path, bucket string) (string, error) {
	raw := strings.TrimSpace(path)
	if raw == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidObjectKey)
	}

	var key string
	switch {
	case strings.HasPrefix(raw, "gs://") || strings.HasPrefix(raw, "s3://"):
		rest := raw[strings.Index(raw, "://")+3:]
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) != 2 {
			return "", fmt.Errorf("%w: %q has no object part", ErrInvalidObjectKey, raw)
		}
		if bucket != "" && parts[0] != bucket {
			return "", fmt.Errorf("%w: %q is outside bucket %q", ErrInvalidObjectKey, raw, bucket)
		}
		key = parts[1]

	case strings.Contains(raw, "://"):
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidObjectKey, err)
		}
		key = strings.TrimPrefix(u.Path, "/")
		if bucket != "" {
			key = strings.TrimPrefix(key, bucket+"/")
		}

	default:
		key = strings.TrimPrefix(raw, "/")
	}

	if key == "" {
		return "", fmt.Errorf("%w: %q has no object part", ErrInvalidObjectKey, raw)
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidObjectKey, raw)
	}
	return key, nil
}

func expiryFor(ttl, fallback time.Duration) time.Duration {
	if ttl <= 0 {
		return fallback
	}
	return ttl
}
