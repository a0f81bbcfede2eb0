// Package domainerrors defines the coded errors that services return and
// transports translate into responses.
//
// Services construct errors with New or wrap lower-level failures with Wrap.
// Handlers never inspect messages; they switch on the Code.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error category.
type Code string

const (
	CodeBadRequest          Code = "bad_request"
	CodeValidation          Code = "validation_error"
	CodeInvalidInput        Code = "invalid_input"
	CodeUnauthorized        Code = "unauthorized"
	CodeForbidden           Code = "forbidden"
	CodeNotFound            Code = "not_found"
	CodeUnknownOfficer      Code = "unknown_officer"
	CodeDuplicateCase       Code = "duplicate_case"
	CodeInvalidStatus       Code = "invalid_status"
	CodeUnresolvedReference Code = "unresolved_reference"
	CodeConflict            Code = "conflict"
	CodeInvariantViolation  Code = "invariant_violation"
	CodeTimeout             Code = "timeout"
	CodeInternal            Code = "internal_error"
)

// Error is a domain error carrying a Code and a human-readable message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a domain error with the same code and message.
// This lets tests assert with errors.Is(err, New(code, msg)).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// New creates a domain error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of the outermost domain error in the chain,
// or CodeInternal when there is none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether any domain error in the chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is shorthand for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// Message returns the message of the outermost domain error, or "" when err
// is not a domain error.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
