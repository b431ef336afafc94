// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies failures so that callers can decide between degrading and aborting.
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation_error"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeError       ErrorType = "processing_error"
	ErrorTypeInput       ErrorType = "input_error"
	ErrorTypeNoArticles  ErrorType = "no_articles"
	ErrorTypeUnavailable ErrorType = "unavailable"
	ErrorTypeConflict    ErrorType = "conflict"
	ErrorTypeTimeout     ErrorType = "timeout"
)

// AppError is the application error carried across package boundaries.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string // stable code surfaced to API clients
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError builds an AppError with the code derived from its type.
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

func NewNotFoundError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, originalError)
}

func NewProcessingError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeError, message, originalError)
}

// NewInputError reports an unreadable or malformed document.
func NewInputError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeInput, message, originalError)
}

// NewNoArticlesError reports a document that produced no articles at all.
func NewNoArticlesError(message string) *AppError {
	return NewAppError(ErrorTypeNoArticles, message, nil)
}

// NewUnavailableError reports a remote model or backend that cannot be reached.
func NewUnavailableError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeUnavailable, message, originalError)
}

func NewConflictError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeConflict, message, originalError)
}

func isType(err error, errType ErrorType) bool {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type == errType
	}
	return false
}

func IsValidationError(err error) bool  { return isType(err, ErrorTypeValidation) }
func IsNotFoundError(err error) bool    { return isType(err, ErrorTypeNotFound) }
func IsInputError(err error) bool       { return isType(err, ErrorTypeInput) }
func IsNoArticlesError(err error) bool  { return isType(err, ErrorTypeNoArticles) }
func IsUnavailableError(err error) bool { return isType(err, ErrorTypeUnavailable) }
func IsConflictError(err error) bool    { return isType(err, ErrorTypeConflict) }

// TypeOf returns the type of the outermost AppError in the chain, or "" for plain errors.
func TypeOf(err error) ErrorType {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type
	}
	return ""
}

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	switch TypeOf(err) {
	case ErrorTypeValidation, ErrorTypeInput:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeNoArticles:
		return http.StatusUnprocessableEntity
	case ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	case ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeError:
		return "PROCESSING_ERROR"
	case ErrorTypeInput:
		return "INVALID_DOCUMENT"
	case ErrorTypeNoArticles:
		return "NO_ARTICLES"
	case ErrorTypeUnavailable:
		return "SERVICE_UNAVAILABLE"
	case ErrorTypeConflict:
		return "CONFLICT"
	case ErrorTypeTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN_ERROR"
	}
}

// WrapError adds context to err. An existing AppError keeps its type and code.
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appError *AppError
	if errors.As(err, &appError) {
		return &AppError{
			Type:    appError.Type,
			Message: fmt.Sprintf("%s: %s", message, appError.Message),
			Err:     appError,
			Code:    appError.Code,
		}
	}

	return NewAppError(errType, message, err)
}
