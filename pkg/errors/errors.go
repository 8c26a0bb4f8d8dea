// Package errors defines the HTTP error envelope the middleware renders and
// the constructors middleware layers use to attach errors to a request.
package errors

import (
	"fmt"
	"net/http"
	"runtime/debug"
)

// AppError carries the HTTP status, a stable machine-readable code and a
// human message. The stack is captured at construction for logs only.
type AppError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
	Stack      string `json:"-"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// WithDetails attaches structured detail for the response body.
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// NewError builds an AppError with an arbitrary status code.
func NewError(statusCode int, code, message string) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Stack:      string(debug.Stack()),
	}
}

func NewBadRequestError(code, message string) *AppError {
	return NewError(http.StatusBadRequest, code, message)
}

func NewUnauthorizedError(code, message string) *AppError {
	return NewError(http.StatusUnauthorized, code, message)
}

func NewForbiddenError(code, message string) *AppError {
	return NewError(http.StatusForbidden, code, message)
}

func NewNotFoundError(code, message string) *AppError {
	return NewError(http.StatusNotFound, code, message)
}

// FromError widens any error into an AppError. Unknown errors become 500s
// with code INTERNAL_ERROR.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return &AppError{
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    err.Error(),
	}
}
