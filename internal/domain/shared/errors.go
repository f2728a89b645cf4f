package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same code, so wrapped copies still
// match the sentinel they were derived from.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WithMessage returns a copy of the error with a more specific message
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{Code: e.Code, Message: message}
}

// WithMessagef is WithMessage with formatting
func (e *DomainError) WithMessagef(format string, args ...any) *DomainError {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes of the ledger taxonomy
const (
	CodeValidation            = "VALIDATION_ERROR"
	CodePermissionDenied      = "PERMISSION_DENIED"
	CodeConflict              = "CONFLICT"
	CodeNotFound              = "NOT_FOUND"
	CodeProductMissing        = "PRODUCT_MISSING"
	CodeAttachmentUnavailable = "ATTACHMENT_UNAVAILABLE"
	CodeDataIntegrity         = "DATA_INTEGRITY"
)

// Common domain errors
var (
	ErrValidation            = NewDomainError(CodeValidation, "Invalid input provided")
	ErrPermissionDenied      = NewDomainError(CodePermissionDenied, "Not permitted to access this resource")
	ErrConflict              = NewDomainError(CodeConflict, "Resource was already processed by another request")
	ErrNotFound              = NewDomainError(CodeNotFound, "Resource not found")
	ErrProductMissing        = NewDomainError(CodeProductMissing, "Referenced product no longer exists")
	ErrAttachmentUnavailable = NewDomainError(CodeAttachmentUnavailable, "Attachment is unavailable")
	ErrDataIntegrity         = NewDomainError(CodeDataIntegrity, "Stored data is inconsistent")
)

// IsCode reports whether err is a DomainError with the given code
func IsCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
