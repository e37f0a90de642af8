// Package domainerrors provides coded errors that services return and the HTTP
// layer translates in exactly one place. Codes are stable API surface; messages
// are human-readable and may change.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies the class of failure. Handlers map codes to HTTP statuses.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeValidation   Code = "validation_error"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeUnavailable  Code = "unavailable"
	CodeTimeout      Code = "timeout"
	CodeInternal     Code = "internal_error"
)

// FieldViolation names a single violated constraint on an input field.
// Validation errors carry one entry per violated field, not just the first.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a coded domain error. Construct with New or Wrap; attach field
// violations with Add.
type Error struct {
	code   Code
	msg    string
	fields []FieldViolation
	cause  error
}

func New(code Code, msg string) *Error {
	return &Error{code: code, msg: msg}
}

// Wrap preserves the cause for errors.Is/errors.As while assigning a code.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{code: code, msg: msg, cause: err}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.msg)
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Code() Code { return e.code }

// Message returns the human-readable message without the code prefix.
func (e *Error) Message() string { return e.msg }

// Add appends a field violation and returns the error for chaining.
func (e *Error) Add(field, message string) *Error {
	e.fields = append(e.fields, FieldViolation{Field: field, Message: message})
	return e
}

// HasCode reports whether err is (or wraps) a domain error with the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.code == code
	}
	return false
}

// Is is a readable alias for HasCode at call sites that check one code.
func Is(err error, code Code) bool { return HasCode(err, code) }

// Load extracts field violations from err, or nil when err carries none.
func Load(err error) []FieldViolation {
	var de *Error
	if errors.As(err, &de) {
		return de.fields
	}
	return nil
}
