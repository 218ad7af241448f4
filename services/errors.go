package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a workflow failure so the HTTP layer can pick a status code
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindBusinessRule
)

// Error is the error type returned by the workflows in this package
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Details interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validationError(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func notFoundError(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func businessError(code, message string, details interface{}) *Error {
	return &Error{Kind: KindBusinessRule, Code: code, Message: message, Details: details}
}

func conflictError(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

func internalError(message string, err error) *Error {
	return &Error{Kind: KindInternal, Code: "DATABASE_ERROR", Message: message, Err: err}
}

// AsError extracts a *Error from err, wrapping anything else as an internal failure
func AsError(err error) *Error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return internalError("Unexpected error", err)
}
