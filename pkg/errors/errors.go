package errors

import (
	"fmt"
)

// ValidationError represents input validation errors detected before any
// outbound gateway call
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// GatewayError represents a business failure reported by the gateway inside
// a 200 JSON body. It is surfaced as data, not raised; flows convert it into
// a failed result with the original payload attached.
type GatewayError struct {
	Status  string
	ErrCode string
	Reason  string
}

func (e *GatewayError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("gateway %s: %s (code: %s)", e.Status, e.Reason, e.ErrCode)
	}
	return fmt.Sprintf("gateway %s (code: %s)", e.Status, e.ErrCode)
}

// NewGatewayError creates a new gateway-reported error
func NewGatewayError(status, errCode, reason string) *GatewayError {
	return &GatewayError{
		Status:  status,
		ErrCode: errCode,
		Reason:  reason,
	}
}
