package errors

import "fmt"

// ErrorCode represents a wikivault error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"  // 400
	ErrPageNotFound   ErrorCode = "PAGE_NOT_FOUND"   // 404
	ErrListNotFound   ErrorCode = "LIST_NOT_FOUND"   // 404
	ErrCacheMiss      ErrorCode = "CACHE_MISS"       // 404
	ErrFileNotFound   ErrorCode = "FILE_NOT_FOUND"   // 404
	ErrAlreadyExists  ErrorCode = "ALREADY_EXISTS"   // 409
	ErrSyncInProgress ErrorCode = "SYNC_IN_PROGRESS" // 409
	ErrCancelled      ErrorCode = "CANCELLED"        // 499
	ErrInternal       ErrorCode = "INTERNAL"         // 500
)

// VaultError represents a structured error with code, status, and details.
type VaultError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *VaultError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *VaultError {
	return &VaultError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewPageNotFound creates a 404 error for when a reading-list page cannot be found.
func NewPageNotFound(identifier string) *VaultError {
	return &VaultError{
		Code:    ErrPageNotFound,
		Status:  404,
		Message: fmt.Sprintf("page not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewListNotFound creates a 404 error for when a reading list cannot be found.
func NewListNotFound(id string) *VaultError {
	return &VaultError{
		Code:    ErrListNotFound,
		Status:  404,
		Message: fmt.Sprintf("reading list not found: %s", id),
		Details: map[string]any{"id": id},
	}
}

// NewCacheMiss creates a 404 error for when no stored content exists for a key.
func NewCacheMiss(url, lang string) *VaultError {
	return &VaultError{
		Code:    ErrCacheMiss,
		Status:  404,
		Message: fmt.Sprintf("no cached content for %s (%s)", url, lang),
		Details: map[string]any{"url": url, "lang": lang},
	}
}

// NewFileNotFound creates a 404 error for a missing file path.
func NewFileNotFound(path string) *VaultError {
	return &VaultError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewAlreadyExists creates a 409 error for duplicate entities.
func NewAlreadyExists(msg string) *VaultError {
	return &VaultError{
		Code:    ErrAlreadyExists,
		Status:  409,
		Message: msg,
	}
}

// NewSyncInProgress creates a 409 error for overlapping sync passes.
func NewSyncInProgress() *VaultError {
	return &VaultError{
		Code:    ErrSyncInProgress,
		Status:  409,
		Message: "a sync pass is already running",
	}
}

// NewCancelled creates a 499 error for a context-cancelled operation.
func NewCancelled(operation string) *VaultError {
	return &VaultError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("operation cancelled: %s", operation),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *VaultError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &VaultError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a VaultError with the given code.
func Is(err error, code ErrorCode) bool {
	if vErr, ok := err.(*VaultError); ok {
		return vErr.Code == code
	}
	return false
}
