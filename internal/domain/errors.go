package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeTransient        = "TRANSIENT_ERROR"
)

// Configuration errors: caller misuse, surfaced immediately, never retried.
var (
	ErrInvalidChunkConfig = NewDomainError(ErrCodeValidation, "chunk size must be positive and overlap must be smaller than chunk size")
	ErrEmptyDocument      = NewDomainError(ErrCodeValidation, "document text is empty")
	ErrEmptyContent       = NewDomainError(ErrCodeValidation, "document has no content to process")
	ErrEmptyQuery         = NewDomainError(ErrCodeValidation, "search query is empty")
	ErrMissingTenant      = NewDomainError(ErrCodeValidation, "tenant id is required")
	ErrInvalidDocStatus   = NewDomainError(ErrCodeValidation, "invalid document status")
)

// Data-integrity errors: fatal for a single ingestion run.
var (
	ErrOwningEntityMissing  = NewDomainError(ErrCodeInvalidOperation, "document must reference exactly one knowledge base or conversation")
	ErrOwningEntityNotFound = NewDomainError(ErrCodeNotFound, "owning knowledge base or conversation not found")
)

// Not found errors
var (
	ErrDocumentNotFound      = NewDomainError(ErrCodeNotFound, "document not found")
	ErrKnowledgeBaseNotFound = NewDomainError(ErrCodeNotFound, "knowledge base not found")
	ErrConversationNotFound  = NewDomainError(ErrCodeNotFound, "conversation not found")
	ErrChunkNotFound         = NewDomainError(ErrCodeNotFound, "chunk not found")
)

// IsErrorCode reports whether err carries the given domain error code.
func IsErrorCode(err error, code string) bool {
	for err != nil {
		if de, ok := err.(*DomainError); ok && de.Code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
