package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/compute/metadata"
	gcs "cloud.google.com/go/storage"
	infraconfig "github.com/retailops/ledger/internal/infrastructure/config"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iamcredentials/v1"
	"google.golang.org/api/option"
)

// GCSSigner signs V4 GET URLs for a Google Cloud Storage bucket. It signs
// locally with a service-account key when one is configured and otherwise
// asks the IAM credentials API to sign on behalf of the service account.
type GCSSigner struct {
	bucket            string
	accessID          string
	privateKey        []byte
	signBytes         func([]byte) ([]byte, error)
	presignExpiration time.Duration
	now               func() time.Time
}

// NewGCSSigner creates a GCSSigner from configuration
func NewGCSSigner(ctx context.Context, cfg *infraconfig.StorageConfig, logger *zap.Logger) (*GCSSigner, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	s := &GCSSigner{
		bucket:            cfg.Bucket,
		accessID:          strings.TrimSpace(cfg.GCSAccessID),
		presignExpiration: cfg.PresignExpiration,
		now:               time.Now,
	}
	if s.presignExpiration == 0 {
		s.presignExpiration = 15 * time.Minute
	}

	if key := strings.TrimSpace(cfg.GCSPrivateKey); key != "" {
		if s.accessID == "" {
			return nil, errors.New("storage.gcs_access_id is required with a private key")
		}
		s.privateKey = normalizePrivateKey(key)
		return s, nil
	}

	email, signBytes, err := iamSigner(ctx, s.accessID)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Info("GCS signer using IAM signBlob", zap.String("service_account", email))
	}
	s.accessID = email
	s.signBytes = signBytes
	return s, nil
}

// Sign returns a V4 signed GET URL for the object at path
func (s *GCSSigner) Sign(ctx context.Context, path string, ttl time.Duration) (string, error) {
	key, err := ObjectKey(path, s.bucket)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	opts := &gcs.SignedURLOptions{
		Scheme:         gcs.SigningSchemeV4,
		Method:         http.MethodGet,
		Expires:        s.now().Add(expiryFor(ttl, s.presignExpiration)),
		GoogleAccessID: s.accessID,
	}
	if s.privateKey != nil {
		opts.PrivateKey = s.privateKey
	} else {
		opts.SignBytes = s.signBytes
	}

	signed, err := gcs.SignedURL(s.bucket, key, opts)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s: %w", key, err)
	}
	return signed, nil
}

func normalizePrivateKey(key string) []byte {
	return []byte(strings.ReplaceAll(key, "\\n", "\n"))
}

func iamSigner(ctx context.Context, email string) (string, func([]byte) ([]byte, error), error) {
	if email == "" && metadata.OnGCE() {
		defaultEmail, err := metadata.Email("default")
		if err != nil {
			return "", nil, fmt.Errorf("failed to get default service account email: %w", err)
		}
		email = defaultEmail
	}
	if email == "" {
		return "", nil, errors.New("storage.gcs_access_id is required when no private key is provided")
	}

	creds, err := google.FindDefaultCredentials(ctx, iamcredentials.CloudPlatformScope)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load default credentials: %w", err)
	}
	svc, err := iamcredentials.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create iamcredentials service: %w", err)
	}

	resource := fmt.Sprintf("projects/-/serviceAccounts/%s", email)
	signBytes := func(data []byte) ([]byte, error) {
		resp, err := svc.Projects.ServiceAccounts.SignBlob(resource, &iamcredentials.SignBlobRequest{
			Payload: base64.StdEncoding.EncodeToString(data),
		}).Do()
		if err != nil {
			return nil, err
		}
		return base64.StdEncoding.DecodeString(resp.SignedBlob)
	}
	return email, signBytes, nil
}
