package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
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

// Is matches on Code so callers can compare against the sentinel values below.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Message == "" && t.Code == e.Code
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrInvalidState
	ErrConflict
)

// Sentinels for errors.Is comparisons.
var (
	NotFoundErr        = &AppError{Code: ErrNotFound}
	InvalidArgumentErr = &AppError{Code: ErrBadRequest}
	InvalidStateErr    = &AppError{Code: ErrInvalidState}
	ConflictErr        = &AppError{Code: ErrConflict}
	ForbiddenErr       = &AppError{Code: ErrForbidden}
	UnauthorizedErr    = &AppError{Code: ErrUnauthorized}
)

var codeNames = map[ErrorCode]string{
	ErrNotFound:     "NOT_FOUND",
	ErrBadRequest:   "INVALID_ARGUMENT",
	ErrUnauthorized: "UNAUTHORIZED",
	ErrForbidden:    "FORBIDDEN",
	ErrInternal:     "INTERNAL",
	ErrInvalidState: "INVALID_STATE",
	ErrConflict:     "CONFLICT",
}

// String returns the wire name of the code.
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "INTERNAL"
}

// HTTPStatus maps the code onto a response status.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrBadRequest:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrInvalidState, ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ParseCode is the inverse of ErrorCode.String. Unknown names map to ErrInternal.
func ParseCode(name string) ErrorCode {
	for code, n := range codeNames {
		if n == name {
			return code
		}
	}
	return ErrInternal
}

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInvalidState(message string) *AppError {
	return &AppError{
		Code:    ErrInvalidState,
		Message: message,
	}
}

func NewConflict(err error) *AppError {
	return &AppError{
		Code:    ErrConflict,
		Message: "concurrent modification, please retry",
		Err:     err,
	}
}

func NewForbidden(message string) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: message,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// Common errors
func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

func BadRequest(message string, err error) *AppError {
	return NewBadRequest(message, err)
}

func Internal(err error) *AppError {
	return NewInternal(err)
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or ErrInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}
