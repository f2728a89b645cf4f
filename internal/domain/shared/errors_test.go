package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesByCode(t *testing.T) {
	specific := ErrConflict.WithMessagef("receipt %s already %s", "r-1", "APPROVED")

	assert.True(t, errors.Is(specific, ErrConflict))
	assert.False(t, errors.Is(specific, ErrNotFound))
	assert.Equal(t, "receipt r-1 already APPROVED", specific.Error())

	wrapped := fmt.Errorf("approve: %w", specific)
	assert.True(t, errors.Is(wrapped, ErrConflict))
	assert.True(t, IsCode(wrapped, CodeConflict))
	assert.False(t, IsCode(errors.New("plain"), CodeConflict))
}

func TestDomainError_WithMessageDoesNotMutateSentinel(t *testing.T) {
	_ = ErrNotFound.WithMessage("receipt not found")
	assert.Equal(t, "Resource not found", ErrNotFound.Message)
}
