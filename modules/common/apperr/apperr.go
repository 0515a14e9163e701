// Package apperr carries the error taxonomy shared by every HTTP module.
//
// An *Error pairs a Kind with a client-safe message. The wrapped cause is kept
// for logs and errors.Is/As, and is never written to a response.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindUpstream
	KindSignature
	KindLedger
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindUpstream:
		return "upstream"
	case KindSignature:
		return "signature"
	case KindLedger:
		return "ledger"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Status is the HTTP status a Kind maps to by default.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindSignature:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind and Message, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation errors are safe to show to the client verbatim.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// Upstream wraps a provider failure behind a generic client message.
func Upstream(message string, err error) *Error {
	return Wrap(KindUpstream, message, err)
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage returns the client-safe message for err.
// Errors outside the taxonomy get fallback.
func PublicMessage(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
