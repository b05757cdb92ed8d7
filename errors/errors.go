package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType classifies a pipeline failure.
type ErrorType string

const (
	// ErrorTypeValidation marks a job rejected before any transform ran.
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeCodec marks a decode, resize or encode failure of the image codec.
	ErrorTypeCodec ErrorType = "codec"
	// ErrorTypeStore marks a rejected or failed blob store write.
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeInternal marks everything else.
	ErrorTypeInternal ErrorType = "internal"
	ErrorTypeUnknown  ErrorType = "unknown"
)

// Error codes reported to HTTP clients.
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeCodecFailed      = "CODEC_FAILED"
	CodeStoreFailed      = "STORE_FAILED"
	CodeInternalError    = "INTERNAL_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	InnerError error                  `json:"-"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		if e.InnerError != nil {
			return e.Message + ": " + e.InnerError.Error()
		}
		return e.Message
	}
	if e.InnerError != nil {
		return e.InnerError.Error()
	}
	return string(e.Type)
}

// Unwrap returns the inner error
func (e *AppError) Unwrap() error {
	return e.InnerError
}

// Is matches any AppError of the same type.
func (e *AppError) Is(target error) bool {
	if targetApp, ok := target.(*AppError); ok {
		return e.Type == targetApp.Type
	}
	return false
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithHTTPStatus sets the HTTP status code
func (e *AppError) WithHTTPStatus(status int) *AppError {
	e.HTTPStatus = status
	return e
}

// WithInnerError sets the inner error
func (e *AppError) WithInnerError(err error) *AppError {
	e.InnerError = err
	return e
}

// Status returns the HTTP status for the error, 500 when unset.
func (e *AppError) Status() int {
	if e.HTTPStatus > 0 {
		return e.HTTPStatus
	}
	return http.StatusInternalServerError
}

// New creates a new AppError
func New(errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:    errType,
		Code:    code,
		Message: message,
	}
}

// FromError converts a standard error to AppError
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return &AppError{
		Type:       ErrorTypeUnknown,
		Code:       CodeInternalError,
		Message:    err.Error(),
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NewValidation lists every violated field in one error.
func NewValidation(message string, fields []string) *AppError {
	return New(ErrorTypeValidation, CodeValidationFailed, message).
		WithDetail("fields", fields).
		WithHTTPStatus(http.StatusBadRequest)
}

// WrapCodec keeps the codec error reachable through errors.Is/As.
func WrapCodec(err error, op string) *AppError {
	return New(ErrorTypeCodec, CodeCodecFailed, fmt.Sprintf("codec %s failed", op)).
		WithInnerError(err).
		WithDetail("op", op).
		WithHTTPStatus(http.StatusUnprocessableEntity)
}

// WrapStore keeps the store error reachable through errors.Is/As.
func WrapStore(err error, provider string) *AppError {
	return New(ErrorTypeStore, CodeStoreFailed, fmt.Sprintf("%s store put failed", provider)).
		WithInnerError(err).
		WithDetail("provider", provider).
		WithHTTPStatus(http.StatusBadGateway)
}

// NewInternal creates an internal error.
func NewInternal(message string) *AppError {
	return New(ErrorTypeInternal, CodeInternalError, message).WithHTTPStatus(http.StatusInternalServerError)
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Type == errType
}

// Format renders err on one line for logs and CLI output.
func Format(err error) string {
	if err == nil {
		return ""
	}

	appErr := FromError(err)

	parts := []string{fmt.Sprintf("[%s] %s", appErr.Type, appErr.Message)}
	if appErr.Code != "" {
		parts = append(parts, "code="+appErr.Code)
	}
	if appErr.InnerError != nil {
		parts = append(parts, "caused_by: "+appErr.InnerError.Error())
	}

	return strings.Join(parts, " | ")
}
