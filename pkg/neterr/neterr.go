// Package neterr defines the closed failure taxonomy shared by the
// gateway, repositories and mutation controllers. Callers classify
// failures by Kind only; message text is for humans.
package neterr

import (
	"errors"
	"fmt"
)

// Kind is the closed set of failure classifications.
type Kind int

const (
	Unknown Kind = iota
	// Unauthorized maps from HTTP 401.
	Unauthorized
	// NotFound maps from HTTP 404.
	NotFound
	// ServerError maps from HTTP 5xx.
	ServerError
	// ConnectionFailure covers transport-level failures and timeouts;
	// it is the only retryable kind.
	ConnectionFailure
	// DecodeFailure marks a payload that could not be decoded.
	DecodeFailure
	// ValidationFailure marks a locally rejected intent (e.g. a
	// duplicate vote); no network call was made.
	ValidationFailure
)

func (k Kind) String() string {
	switch k {
	case Unauthorized:
		return "unauthorized"
	case NotFound:
		return "not_found"
	case ServerError:
		return "server_error"
	case ConnectionFailure:
		return "connection_failure"
	case DecodeFailure:
		return "decode_failure"
	case ValidationFailure:
		return "validation_failure"
	default:
		return "unknown"
	}
}

// Error carries a classification, the operation that failed and an
// optional wrapped cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with a human-readable message.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap builds an Error around a cause.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// FromStatus classifies an HTTP status code. Statuses outside the
// taxonomy map to ServerError when >= 500 and Unknown otherwise.
func FromStatus(op string, status int) *Error {
	switch {
	case status == 401:
		return New(Unauthorized, op, "unauthorized")
	case status == 404:
		return New(NotFound, op, "not found")
	case status >= 500:
		return New(ServerError, op, fmt.Sprintf("server returned %d", status))
	default:
		return New(Unknown, op, fmt.Sprintf("unexpected status %d", status))
	}
}

// KindOf extracts the classification from err, or Unknown when err is
// not a taxonomy error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Retryable reports whether err is worth retrying once connectivity
// returns. Only connection failures qualify.
func Retryable(err error) bool {
	return IsKind(err, ConnectionFailure)
}
