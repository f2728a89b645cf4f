package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	infraconfig "github.com/retailops/ledger/internal/infrastructure/config"
	"go.uber.org/zap"
)

// S3Signer presigns GET requests against any S3-compatible storage
// (AWS S3, MinIO, RustFS).
type S3Signer struct {
	presignClient     *s3.PresignClient
	bucket            string
	presignExpiration time.Duration
	logger            *zap.Logger
}

// S3SignerOption is a functional option for configuring S3Signer
type S3SignerOption func(*S3Signer)

// WithLogger sets a custom logger for S3Signer
func WithLogger(logger *zap.Logger) S3SignerOption {
	return func(s *S3Signer) {
		s.logger = logger
	}
}

// NewS3Signer creates an S3Signer from configuration. Presigning is local;
// no request reaches the storage endpoint until the URL is used.
func NewS3Signer(cfg *infraconfig.StorageConfig, opts ...S3SignerOption) (*S3Signer, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("storage access key and secret key are required")
	}

	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if cfg.UseSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if endpoint != "" {
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid storage endpoint: %w", err)
		}
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	signer := &S3Signer{
		presignClient:     s3.NewPresignClient(client),
		bucket:            cfg.Bucket,
		presignExpiration: cfg.PresignExpiration,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(signer)
	}
	if signer.presignExpiration == 0 {
		signer.presignExpiration = 15 * time.Minute
	}
	return signer, nil
}

// Sign returns a presigned GET URL for the object at path
func (s *S3Signer) Sign(ctx context.Context, path string, ttl time.Duration) (string, error) {
	key, err := ObjectKey(path, s.bucket)
	if err != nil {
		return "", err
	}

	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiryFor(ttl, s.presignExpiration)))
	if err != nil {
		s.logger.Debug("Presign failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, nil
}

// Bucket returns the bucket name
func (s *S3Signer) Bucket() string {
	return s.bucket
}
