// File: internal/document/errors.go
package document

import (
	"errors"
	"fmt"
)

// ErrorCode tags why a loader could not serve a request.
type ErrorCode string

const (
	CodeUnknown                 ErrorCode = "UNKNOWN"
	CodeOperationNotImplemented ErrorCode = "OPERATION_NOT_IMPLEMENTED"
	CodeInvalidDocumentURL      ErrorCode = "INVALID_DOCUMENT_URL"
)

// LoadError is the only error type loaders return.
type LoadError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// NewLoadError builds a LoadError. cause may be nil.
func NewLoadError(code ErrorCode, cause error, format string, args ...any) *LoadError {
	return &LoadError{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Cause }

// Is matches another *LoadError by code, so errors.Is(err, &LoadError{Code: c}) works.
func (e *LoadError) Is(target error) bool {
	t, ok := target.(*LoadError)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// CodeOf returns the code of the outermost LoadError in err's chain, or
// CodeUnknown when there is none.
func CodeOf(err error) ErrorCode {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return CodeUnknown
}
