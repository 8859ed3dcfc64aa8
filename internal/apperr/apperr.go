// Package apperr implements the error taxonomy of spec §7: InvalidInput,
// NotFound, Conflict, Transient, PricerError and Fatal, each mapped to an
// HTTP status and a retry/propagation rule understood by the worker and the
// HTTP services.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error per spec §7.
type Kind string

const (
	KindInvalidInput Kind = "InvalidInput"
	KindNotFound     Kind = "NotFound"
	KindConflict     Kind = "Conflict"
	KindTransient    Kind = "Transient"
	KindPricerError  Kind = "PricerError"
	KindFatal        Kind = "Fatal"
	KindInternal     Kind = "Internal"
)

// Error is a taxonomy-tagged error. Wrap underlying causes with Wrap so
// callers can still unwrap to the original error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func new_(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func InvalidInput(msg string) *Error            { return new_(KindInvalidInput, msg, nil) }
func NotFound(msg string) *Error                { return new_(KindNotFound, msg, nil) }
func Conflict(msg string) *Error                { return new_(KindConflict, msg, nil) }
func Transient(msg string, err error) *Error    { return new_(KindTransient, msg, err) }
func PricerError(msg string, err error) *Error  { return new_(KindPricerError, msg, err) }
func Fatal(msg string, err error) *Error        { return new_(KindFatal, msg, err) }
func Internal(msg string, err error) *Error     { return new_(KindInternal, msg, err) }

// As extracts *Error from err, if it is (or wraps) one.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// HTTPStatus maps a Kind to the HTTP status code spec §7 specifies.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidInput:
		return 400
	case KindNotFound:
		return 404
	case KindConflict:
		return 409
	case KindTransient:
		return 503
	case KindPricerError, KindFatal, KindInternal:
		return 500
	default:
		return 500
	}
}
