package storage

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// StubSigner builds unsigned URLs under a base URL. It is meant for local
// development where attachments are served by a plain file server.
type StubSigner struct {
	BaseURL string
	now     func() time.Time
}

// NewStubSigner creates a new StubSigner
func NewStubSigner(baseURL string) *StubSigner {
	if baseURL == "" {
		baseURL = "http://localhost:8080/files"
	}
	return &StubSigner{BaseURL: strings.TrimRight(baseURL, "/"), now: time.Now}
}

// Sign returns BaseURL/key with the would-be expiry as a query parameter
func (s *StubSigner) Sign(ctx context.Context, path string, ttl time.Duration) (string, error) {
	key, err := ObjectKey(path, "")
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("expires", s.now().Add(ttl).UTC().Format(time.RFC3339))
	return s.BaseURL + "/" + key + "?" + q.Encode(), nil
}
