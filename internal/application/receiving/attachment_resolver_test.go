package receiving_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appreceiving "github.com/retailops/ledger/internal/application/receiving"
	"github.com/retailops/ledger/internal/domain/shared"
)

type mockSigner struct {
	mock.Mock
}

func (m *mockSigner) Sign(ctx context.Context, path string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, path, ttl)
	return args.String(0), args.Error(1)
}

// funcSigner adapts a function to the Signer port
type funcSigner func(ctx context.Context, path string, ttl time.Duration) (string, error)

func (f funcSigner) Sign(ctx context.Context, path string, ttl time.Duration) (string, error) {
	return f(ctx, path, ttl)
}

func TestAttachmentResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	ttl := 10 * time.Minute

	t.Run("signs every path and keeps input order", func(t *testing.T) {
		signer := new(mockSigner)
		signer.On("Sign", mock.Anything, "a.jpg", ttl).Return("https://cdn/a.jpg?sig=1", nil)
		signer.On("Sign", mock.Anything, "b.pdf", ttl).Return("https://cdn/b.pdf?sig=2", nil)
		signer.On("Sign", mock.Anything, "c.png", ttl).Return("https://cdn/c.png?sig=3", nil)

		r := appreceiving.NewAttachmentResolver(signer, appreceiving.ResolverOptions{TTL: ttl})
		got := r.Resolve(ctx, []string{"a.jpg", "b.pdf", "c.png"})

		require.Len(t, got, 3)
		assert.Equal(t, "a.jpg", got[0].Path)
		assert.Equal(t, "https://cdn/a.jpg?sig=1", got[0].URL)
		assert.Equal(t, "b.pdf", got[1].Path)
		assert.Equal(t, "c.png", got[2].Path)
		for _, a := range got {
			assert.True(t, a.Available)
			assert.Empty(t, a.ErrorCode)
			require.NotNil(t, a.ExpiresAt)
			assert.WithinDuration(t, time.Now().Add(ttl), *a.ExpiresAt, time.Minute)
		}
		signer.AssertExpectations(t)
	})

	t.Run("empty input signs nothing", func(t *testing.T) {
		signer := new(mockSigner)
		r := appreceiving.NewAttachmentResolver(signer, appreceiving.ResolverOptions{})
		assert.Empty(t, r.Resolve(ctx, nil))
		signer.AssertNotCalled(t, "Sign", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("a failing path does not fail the others", func(t *testing.T) {
		signer := new(mockSigner)
		signer.On("Sign", mock.Anything, "ok.jpg", ttl).Return("https://cdn/ok.jpg", nil)
		signer.On("Sign", mock.Anything, "broken.jpg", ttl).Return("", errors.New("access denied"))

		r := appreceiving.NewAttachmentResolver(signer, appreceiving.ResolverOptions{TTL: ttl})
		got := r.Resolve(ctx, []string{"ok.jpg", "broken.jpg"})

		require.Len(t, got, 2)
		assert.True(t, got[0].Available)
		assert.False(t, got[1].Available)
		assert.Equal(t, shared.CodeAttachmentUnavailable, got[1].ErrorCode)
		assert.Empty(t, got[1].URL)
		assert.Nil(t, got[1].ExpiresAt)
	})

	t.Run("an empty url counts as a failure", func(t *testing.T) {
		signer := new(mockSigner)
		signer.On("Sign", mock.Anything, "x.jpg", ttl).Return("", nil)

		r := appreceiving.NewAttachmentResolver(signer, appreceiving.ResolverOptions{TTL: ttl})
		got := r.Resolve(ctx, []string{"x.jpg"})

		assert.False(t, got[0].Available)
		assert.Equal(t, shared.CodeAttachmentUnavailable, got[0].ErrorCode)
	})

	t.Run("a slow signer times out per attachment", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		signer := funcSigner(func(ctx context.Context, path string, _ time.Duration) (string, error) {
			if path == "slow.jpg" {
				// Ignores ctx on purpose
				<-release
				return "https://cdn/slow.jpg", nil
			}
			return "https://cdn/" + path, nil
		})

		r := appreceiving.NewAttachmentResolver(signer, appreceiving.ResolverOptions{
			TTL:     ttl,
			Timeout: 50 * time.Millisecond,
		})

		start := time.Now()
		got := r.Resolve(ctx, []string{"fast.jpg", "slow.jpg"})
		elapsed := time.Since(start)

		assert.Less(t, elapsed, 2*time.Second)
		assert.True(t, got[0].Available)
		assert.False(t, got[1].Available)
		assert.Equal(t, shared.CodeAttachmentUnavailable, got[1].ErrorCode)
	})

	t.Run("signs in parallel", func(t *testing.T) {
		var inFlight, peak atomic.Int32
		signer := funcSigner(func(ctx context.Context, path string, _ time.Duration) (string, error) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			return "https://cdn/" + path, nil
		})

		r := appreceiving.NewAttachmentResolver(signer, appreceiving.ResolverOptions{MaxParallel: 4})
		got := r.Resolve(ctx, []string{"1", "2", "3", "4", "5", "6", "7", "8"})

		require.Len(t, got, 8)
		assert.Greater(t, peak.Load(), int32(1))
		assert.LessOrEqual(t, peak.Load(), int32(4))
	})

	t.Run("failures are not cached", func(t *testing.T) {
		var calls atomic.Int32
		signer := funcSigner(func(ctx context.Context, path string, _ time.Duration) (string, error) {
			if calls.Add(1) == 1 {
				return "", errors.New("transient")
			}
			return "https://cdn/" + path, nil
		})

		r := appreceiving.NewAttachmentResolver(signer, appreceiving.ResolverOptions{})

		first := r.Resolve(ctx, []string{"a.jpg"})
		assert.False(t, first[0].Available)

		second := r.Resolve(ctx, []string{"a.jpg"})
		assert.True(t, second[0].Available)
		assert.Equal(t, int32(2), calls.Load())
	})
}
