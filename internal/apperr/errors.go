// Package apperr defines the error taxonomy shared by the upstream client,
// the cache and the HTTP handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind categorizes an Error.
type Kind string

const (
	// KindValidation is a missing or malformed request parameter.
	KindValidation Kind = "validation"
	// KindNotFound means the provider answered but returned no records.
	KindNotFound Kind = "not_found"
	// KindUpstream covers transport failures, timeouts, non-2xx statuses
	// and unparseable provider payloads.
	KindUpstream Kind = "upstream"
	// KindCache is a cache connectivity or (de)serialization failure. It is
	// recovered locally and never reaches a client.
	KindCache Kind = "cache"
)

// HTTPStatus maps a Kind to the status code the API answers with.
// Not-found and upstream failures share 424 (Failed Dependency).
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindNotFound, KindUpstream:
		return http.StatusFailedDependency
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a safe, pre-built Message. The wrapped Err is for logs and
// errors.Is/As only; Error() never includes it.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status code for the error's kind.
func (e *Error) HTTPStatus() int {
	return e.Kind.HTTPStatus()
}

func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Upstream(err error, format string, args ...any) *Error {
	return New(KindUpstream, fmt.Sprintf(format, args...), err)
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...), nil)
}

func Cache(err error, format string, args ...any) *Error {
	return New(KindCache, fmt.Sprintf(format, args...), err)
}

// KindOf returns the kind of the first *Error in err's chain, or "" when
// there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
