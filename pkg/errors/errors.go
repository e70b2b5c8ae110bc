package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a validation error
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeExternal indicates an error from external service
	ErrorTypeExternal ErrorType = "EXTERNAL"

	// ErrorTypeDevice indicates the capture device (camera, gallery) failed or was denied
	ErrorTypeDevice ErrorType = "DEVICE"

	// ErrorTypeOCR indicates text recognition could not run on the captured image
	ErrorTypeOCR ErrorType = "OCR"

	// ErrorTypeExtraction indicates the AI model call could not be completed
	ErrorTypeExtraction ErrorType = "EXTRACTION"

	// ErrorTypeInsufficientInput is informational: nothing worth analyzing was captured
	ErrorTypeInsufficientInput ErrorType = "INSUFFICIENT_INPUT"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the user can reasonably try the same action again.
func (e *AppError) Retryable() bool {
	switch e.Type {
	case ErrorTypeDevice, ErrorTypeOCR, ErrorTypeExtraction, ErrorTypeExternal:
		return true
	}
	return false
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// NewExternalError creates a new external service error
func NewExternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeExternal,
		Message: message,
		Err:     err,
	}
}

// NewDeviceError creates a capture device error
func NewDeviceError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeDevice,
		Message: message,
		Err:     err,
	}
}

// NewOCRError creates a text recognition error
func NewOCRError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeOCR,
		Message: message,
		Err:     err,
	}
}

// NewExtractionError creates an AI extraction error
func NewExtractionError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeExtraction,
		Message: message,
		Err:     err,
	}
}

// NewInsufficientInputError creates the informational insufficient input error
func NewInsufficientInputError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeInsufficientInput,
		Message: message,
	}
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or "".
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}
