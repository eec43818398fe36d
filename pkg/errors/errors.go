package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"time"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeRateLimit    Code = "RATE_LIMITED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"
)

// Metadata describes how a code is surfaced to HTTP clients. When
// ExposeMessage is false the caller only ever sees PublicMessage.
type Metadata struct {
	HTTPStatus    int
	PublicMessage string
	ExposeMessage bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:    http.StatusBadRequest,
		PublicMessage: "Invalid request",
		ExposeMessage: true,
	},
	CodeUnauthorized: {
		HTTPStatus:    http.StatusUnauthorized,
		PublicMessage: "Unauthorized",
		ExposeMessage: true,
	},
	CodeForbidden: {
		HTTPStatus:    http.StatusForbidden,
		PublicMessage: "Access denied",
		ExposeMessage: true,
	},
	CodeNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "Not found",
		ExposeMessage: true,
	},
	CodeConflict: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "Conflict",
		ExposeMessage: true,
	},
	CodeRateLimit: {
		HTTPStatus:    http.StatusTooManyRequests,
		PublicMessage: "Too many attempts. Please try again later.",
		ExposeMessage: true,
	},
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		PublicMessage: "Internal server error",
	},
	CodeDependency: {
		HTTPStatus:    http.StatusInternalServerError,
		PublicMessage: "Internal server error",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code       Code
	message    string
	details    any
	retryAfter time.Duration

	// public overrides the metadata message for codes that hide their own.
	public string
	cause  error
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

// RateLimited builds a CodeRateLimit error carrying the wait before the next attempt.
func RateLimited(message string, retryAfter time.Duration) *Error {
	return &Error{code: CodeRateLimit, message: message, retryAfter: retryAfter}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// PublicMessage is the text safe to hand to a client.
func (e *Error) PublicMessage() string {
	if e != nil && e.public != "" {
		return e.public
	}
	meta := MetadataFor(e.Code())
	if meta.ExposeMessage && e.Message() != "" {
		return e.Message()
	}
	return meta.PublicMessage
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

// WithPublicMessage sets the text clients see regardless of the code's
// exposure rules. The internal message still goes to the logs.
func (e *Error) WithPublicMessage(msg string) *Error {
	if e == nil {
		return nil
	}
	e.public = msg
	return e
}

func (e *Error) RetryAfter() time.Duration {
	if e == nil {
		return 0
	}
	return e.retryAfter
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

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
