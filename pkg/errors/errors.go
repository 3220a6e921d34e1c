package errors

import (
	stdErrors "errors"
	"fmt"
)

type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeNotFound          Code = "NOT_FOUND"
	CodeForbidden         Code = "FORBIDDEN"
	CodeConflict          Code = "CONFLICT"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeStorage           Code = "STORAGE_ERROR"
)

// Metadata describes how an error code is surfaced to the chat user.
type Metadata struct {
	// LexiconKey is the default user-facing message key.
	LexiconKey string
	Retryable  bool
	// LogAsError marks codes that indicate a fault on our side rather than
	// a user mistake.
	LogAsError bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		LexiconKey: "error_validation",
		Retryable:  true,
	},
	CodeNotFound: {
		LexiconKey: "error_not_found",
	},
	CodeForbidden: {
		LexiconKey: "error_access_denied",
	},
	CodeConflict: {
		LexiconKey: "error_conflict",
	},
	CodeInvalidTransition: {
		LexiconKey: "error_invalid_action",
	},
	CodeStorage: {
		LexiconKey: "error_try_later",
		Retryable:  true,
		LogAsError: true,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeStorage]
}

type Error struct {
	code    Code
	message string
	key     string
	field   string
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

// Validation builds a field-level validation error whose lexicon key names
// the specific retry prompt.
func Validation(field, key, message string) *Error {
	return &Error{code: CodeValidation, message: message, key: key, field: field}
}

func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

func Forbidden(message string) *Error {
	return New(CodeForbidden, message)
}

func Conflict(key, message string) *Error {
	return &Error{code: CodeConflict, message: message, key: key}
}

func Storage(err error, message string) *Error {
	return Wrap(CodeStorage, err, message)
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeStorage
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Field names the draft field a validation error refers to.
func (e *Error) Field() string {
	if e == nil {
		return ""
	}
	return e.field
}

// Key returns the lexicon key for the user-facing message, falling back to
// the code default.
func (e *Error) Key() string {
	if e == nil {
		return MetadataFor(CodeStorage).LexiconKey
	}
	if e.key != "" {
		return e.key
	}
	return MetadataFor(e.code).LexiconKey
}

func (e *Error) WithKey(key string) *Error {
	if e == nil {
		return nil
	}
	e.key = key
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf reports the code of err. Untyped errors are storage faults.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeStorage
}

func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
