// Package errors defines the error model for everything outside the parsers:
// configuration, file IO, storage and the check service.
package errors

import (
	"errors"
	"fmt"

	"bindsig/internal/engine/diag"
)

type ErrorCode string

const (
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
	CodeNotSupported    ErrorCode = "NOT_SUPPORTED"
	CodeSyntax          ErrorCode = "SYNTAX_ERROR"
	CodeRateLimited     ErrorCode = "RATE_LIMITED"
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

const (
	CtxPath      = "path"
	CtxOperation = "operation"
	CtxLine      = "line"
	CtxKind      = "kind"
)

func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) > 0 {
		msg += fmt.Sprintf(" %v", e.Context)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// Syntax wraps a parse failure of the given declaration kind. The
// diagnostic stays reachable through errors.As.
func Syntax(err *diag.Error, kind string) error {
	return &DomainError{
		Code:    CodeSyntax,
		Message: kind + " declaration is invalid",
		Err:     err,
		Context: map[string]interface{}{CtxKind: kind},
	}
}

// AddContext attaches key/value context, wrapping foreign errors as internal.
func AddContext(err error, key string, value interface{}) error {
	var de *DomainError
	if errors.As(err, &de) {
		de.WithContext(key, value)
		return de
	}
	return &DomainError{
		Code:    CodeInternal,
		Message: "wrapped error",
		Err:     err,
		Context: map[string]interface{}{key: value},
	}
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
