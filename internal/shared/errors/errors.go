// Package errors provides application-level error types and utilities.
// It defines the billing error taxonomy: validation, not found, conflict,
// provider-temporary, provider-rejected and signature verification errors.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeValidation        ErrorType = "validation_error"
	ErrorTypeNotFound          ErrorType = "not_found"
	ErrorTypeConflict          ErrorType = "conflict"
	ErrorTypeUnauthorized      ErrorType = "unauthorized"
	ErrorTypeInternal          ErrorType = "internal_error"
	ErrorTypeProviderTemporary ErrorType = "provider_temporary"
	ErrorTypeProviderRejected  ErrorType = "provider_rejected"
	ErrorTypeSignature         ErrorType = "signature_verification_failed"
)

// AppError represents an application error with additional context.
// ProviderCode carries the provider's stable reason code (e.g. card_declined)
// when the error originated at a payment gateway.
type AppError struct {
	Type         ErrorType `json:"type"`
	Message      string    `json:"message"`
	Code         int       `json:"code"`
	Details      string    `json:"details,omitempty"`
	ProviderCode string    `json:"provider_code,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Retryable reports whether the caller may retry the operation with backoff.
// Only provider-temporary failures qualify; everything else is permanent.
func (e *AppError) Retryable() bool {
	return e.Type == ErrorTypeProviderTemporary
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
		Code:    http.StatusBadRequest,
		Details: firstDetail(details),
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
		Code:    http.StatusNotFound,
		Details: firstDetail(details),
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: message,
		Code:    http.StatusConflict,
		Details: firstDetail(details),
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
		Code:    http.StatusUnauthorized,
		Details: firstDetail(details),
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Code:    http.StatusInternalServerError,
		Details: firstDetail(details),
	}
}

// NewProviderTemporaryError marks a transient gateway failure (timeout, 5xx).
// The related payment stays pending and the caller may retry with backoff.
func NewProviderTemporaryError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeProviderTemporary,
		Message: message,
		Code:    http.StatusBadGateway,
		Details: firstDetail(details),
	}
}

// NewProviderRejectedError marks a terminal gateway rejection (card declined,
// insufficient funds). providerCode is the provider's stable reason code.
func NewProviderRejectedError(message, providerCode string, details ...string) *AppError {
	return &AppError{
		Type:         ErrorTypeProviderRejected,
		Message:      message,
		Code:         http.StatusUnprocessableEntity,
		Details:      firstDetail(details),
		ProviderCode: providerCode,
	}
}

// NewSignatureError creates a webhook signature verification error.
// These are logged and recorded, never surfaced as a 5xx to the provider.
func NewSignatureError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeSignature,
		Message: message,
		Code:    http.StatusBadRequest,
		Details: firstDetail(details),
	}
}

func firstDetail(details []string) string {
	if len(details) > 0 {
		return details[0]
	}
	return ""
}

// IsAppError checks if the error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from error
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsConflictError checks if the error is a conflict error
func IsConflictError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeConflict
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeNotFound
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeValidation
}

// IsProviderTemporaryError checks if the error is a transient provider error
func IsProviderTemporaryError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeProviderTemporary
}

// IsProviderRejectedError checks if the error is a terminal provider rejection
func IsProviderRejectedError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeProviderRejected
}

// IsSignatureError checks if the error is a signature verification error
func IsSignatureError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeSignature
}

// IsDuplicateError checks if the error is a database duplicate key error
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// MySQL duplicate entry error
	if strings.Contains(errStr, "Duplicate entry") || strings.Contains(errStr, "duplicate key") {
		return true
	}
	// PostgreSQL / SQLite unique violation
	if strings.Contains(errStr, "unique constraint") || strings.Contains(errStr, "UNIQUE constraint") {
		return true
	}
	return false
}
