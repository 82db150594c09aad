package errors

import (
	stderrors "errors"
	"fmt"
)

type ErrorType string

const (
	ErrorTypeNotFound            ErrorType = "NOT_FOUND"
	ErrorTypeCorrupt             ErrorType = "CORRUPT"
	ErrorTypeInsufficientHistory ErrorType = "INSUFFICIENT_HISTORY"
	ErrorTypeIO                  ErrorType = "IO"
	ErrorTypeValidation          ErrorType = "VALIDATION"
)

// Process exit codes per error type. Anything untyped exits with 1.
const (
	CodeGeneric             = 1
	CodeNotFound            = 2
	CodeCorrupt             = 3
	CodeInsufficientHistory = 4
	CodeValidation          = 64
	CodeIO                  = 74
)

type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details any       `json:"details,omitempty"`
	Err     error     `json:"-"`
}

// Sentinels for errors.Is. Matching is by Type only.
var (
	ErrNotFound            = &Error{Type: ErrorTypeNotFound, Code: CodeNotFound}
	ErrCorrupt             = &Error{Type: ErrorTypeCorrupt, Code: CodeCorrupt}
	ErrInsufficientHistory = &Error{Type: ErrorTypeInsufficientHistory, Code: CodeInsufficientHistory}
	ErrIO                  = &Error{Type: ErrorTypeIO, Code: CodeIO}
	ErrValidation          = &Error{Type: ErrorTypeValidation, Code: CodeValidation}
)

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

func NotFound(message string) *Error {
	return &Error{
		Type:    ErrorTypeNotFound,
		Message: message,
		Code:    CodeNotFound,
	}
}

func Corrupt(message string, err error) *Error {
	return &Error{
		Type:    ErrorTypeCorrupt,
		Message: message,
		Code:    CodeCorrupt,
		Err:     err,
	}
}

func InsufficientHistory(message string) *Error {
	return &Error{
		Type:    ErrorTypeInsufficientHistory,
		Message: message,
		Code:    CodeInsufficientHistory,
	}
}

// IO wraps a filesystem failure (permission, disk full, ...) with the
// operation that hit it.
func IO(op string, err error) *Error {
	return &Error{
		Type:    ErrorTypeIO,
		Message: op,
		Code:    CodeIO,
		Err:     err,
	}
}

func ValidationError(message string, details any) *Error {
	return &Error{
		Type:    ErrorTypeValidation,
		Message: message,
		Code:    CodeValidation,
		Details: details,
	}
}

// ExitCode walks the wrap chain and returns the code of the first typed
// error, or CodeGeneric.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed.Code
	}
	return CodeGeneric
}

// Is and As forward to the standard library so callers importing this
// package under its default name keep the usual helpers.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target any) bool {
	return stderrors.As(err, target)
}
