package dto

import (
	"net/http"

	"github.com/retailops/ledger/internal/domain/shared"
)

// Domain error codes, surfaced unchanged
const (
	ErrCodeValidation       = shared.CodeValidation
	ErrCodePermissionDenied = shared.CodePermissionDenied
	ErrCodeConflict         = shared.CodeConflict
	ErrCodeNotFound         = shared.CodeNotFound
	ErrCodeProductMissing   = shared.CodeProductMissing
)

// Transport error codes
const (
	// ErrCodeInternal is used for infrastructure failures
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeUnauthorized is used when authentication is missing
	ErrCodeUnauthorized = "UNAUTHORIZED"
	// ErrCodeTokenExpired is used when the auth token has expired
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	// ErrCodeTokenInvalid is used when the auth token is invalid
	ErrCodeTokenInvalid = "INVALID_TOKEN"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeValidation:       http.StatusBadRequest,
	ErrCodePermissionDenied: http.StatusForbidden,
	ErrCodeConflict:         http.StatusConflict,
	ErrCodeNotFound:         http.StatusNotFound,
	ErrCodeProductMissing:   http.StatusUnprocessableEntity,

	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeUnauthorized:    http.StatusUnauthorized,
	ErrCodeTokenExpired:    http.StatusUnauthorized,
	ErrCodeTokenInvalid:    http.StatusUnauthorized,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
