package utils

import (
	"fmt"
	"net/http"
)

// ServiceError represents a service-level error with context
type ServiceError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode,omitempty"`
	Details    string `json:"details,omitempty"`
	Cause      error  `json:"-"` // Original error, not exposed in JSON
}

func (e ServiceError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e ServiceError) Unwrap() error {
	return e.Cause
}

// NewServiceError creates a new service error
func NewServiceError(code, message string) error {
	return ServiceError{
		Code:       code,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewServiceErrorWithCause creates a service error that wraps another error
func NewServiceErrorWithCause(code, message string, cause error) error {
	return ServiceError{
		Code:       code,
		Message:    message,
		Cause:      cause,
		StatusCode: http.StatusInternalServerError,
	}
}

// GetServiceError extracts a ServiceError from an error
func GetServiceError(err error) (ServiceError, bool) {
	if serviceErr, ok := err.(ServiceError); ok {
		return serviceErr, true
	}
	return ServiceError{}, false
}

// IsErrorCode reports whether err is a ServiceError carrying the given code.
func IsErrorCode(err error, code string) bool {
	serviceErr, ok := GetServiceError(err)
	return ok && serviceErr.Code == code
}

// Common service error constructors
func NewUnauthorizedError(message string) error {
	return ServiceError{
		Code:       "UNAUTHORIZED",
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string) error {
	return ServiceError{
		Code:       "FORBIDDEN",
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewNotFoundError(resource string) error {
	return ServiceError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func NewValidationError(message string) error {
	return ServiceError{
		Code:       ErrCodeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewBadRequestError(message string) error {
	return ServiceError{
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewConflictError(message string) error {
	return ServiceError{
		Code:       ErrCodeConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewInternalError(message string) error {
	return ServiceError{
		Code:       ErrCodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func NewDatabaseError(operation string, cause error) error {
	return ServiceError{
		Code:       ErrCodeDatabase,
		Message:    fmt.Sprintf("Database operation failed: %s", operation),
		Cause:      cause,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewUpstreamUnavailableError marks a provider transport failure. The intake
// pipeline recovers from it with the safe default; it never reaches a client
// as a 5xx during emergency creation.
func NewUpstreamUnavailableError(provider string, cause error) error {
	return ServiceError{
		Code:       ErrCodeUpstream,
		Message:    fmt.Sprintf("%s provider unavailable", provider),
		Cause:      cause,
		StatusCode: http.StatusServiceUnavailable,
	}
}

// NewMalformedResponseError marks provider output that failed strict parsing.
func NewMalformedResponseError(provider, details string) error {
	return ServiceError{
		Code:       ErrCodeMalformed,
		Message:    fmt.Sprintf("%s provider returned malformed output", provider),
		Details:    details,
		StatusCode: http.StatusBadGateway,
	}
}

// NewDeliveryError marks a single failed notification send. Recorded on the
// emergency, never thrown past the dispatcher.
func NewDeliveryError(method string, cause error) error {
	return ServiceError{
		Code:       ErrCodeDelivery,
		Message:    fmt.Sprintf("%s delivery failed", method),
		Cause:      cause,
		StatusCode: http.StatusServiceUnavailable,
	}
}

// Business logic specific errors
func NewUserNotFoundError() error {
	return NewNotFoundError("User")
}

func NewEmergencyNotFoundError() error {
	return NewNotFoundError("Emergency")
}

func NewContactNotFoundError() error {
	return NewNotFoundError("Contact")
}

func NewStepNotFoundError() error {
	return NewNotFoundError("Instruction step")
}

func NewAlreadyResolvedError() error {
	return NewConflictError("Emergency is already resolved")
}

func NewInvalidCredentialsError() error {
	return NewUnauthorizedError("Invalid credentials")
}

// Error code constants
const (
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeConflict   = "CONFLICT"
	ErrCodeUpstream   = "UPSTREAM_UNAVAILABLE"
	ErrCodeMalformed  = "MALFORMED_RESPONSE"
	ErrCodeDelivery   = "DELIVERY_ERROR"
	ErrCodeInternal   = "INTERNAL_ERROR"
	ErrCodeDatabase   = "DATABASE_ERROR"
	ErrCodeRateLimit  = "RATE_LIMIT_EXCEEDED"
)
