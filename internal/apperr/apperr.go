package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for the action boundary.
type Kind string

const (
	KindInvalidInput         Kind = "invalid_input"
	KindMisconfigured        Kind = "misconfigured"
	KindUpstream             Kind = "upstream_error"
	KindParse                Kind = "parse_error"
	KindClientTransport      Kind = "client_transport_error"
	KindBusy                 Kind = "busy"
	KindConfirmationRequired Kind = "confirmation_required"
	KindNotFound             Kind = "not_found"
	KindInternal             Kind = "internal"
)

// Error is the single error type surfaced to handlers and CLI commands.
type Error struct {
	Kind    Kind
	Status  int
	Message string
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

func newError(kind Kind, status int, msg string, err error) *Error {
	return &Error{Kind: kind, Status: status, Message: msg, Err: err}
}

func InvalidInput(msg string) *Error {
	return newError(KindInvalidInput, http.StatusBadRequest, msg, nil)
}

func Misconfigured(msg string) *Error {
	return newError(KindMisconfigured, http.StatusInternalServerError, msg, nil)
}

// Upstream carries the provider's status and body. A status of zero means the
// provider never answered and is reported as 500.
func Upstream(status int, body string, err error) *Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return newError(KindUpstream, status, body, err)
}

func Parse(msg string, err error) *Error {
	return newError(KindParse, http.StatusBadGateway, msg, err)
}

func ClientTransport(err error) *Error {
	return newError(KindClientTransport, http.StatusBadGateway, "failed to reach the generation service", err)
}

func Busy(msg string) *Error {
	return newError(KindBusy, http.StatusConflict, msg, nil)
}

func ConfirmationRequired(msg string) *Error {
	return newError(KindConfirmationRequired, http.StatusConflict, msg, nil)
}

func NotFound(msg string) *Error {
	return newError(KindNotFound, http.StatusNotFound, msg, nil)
}

// Internal is a local failure with a message fit for the user.
func Internal(msg string, err error) *Error {
	return newError(KindInternal, http.StatusInternalServerError, msg, err)
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// StatusOf maps err to an HTTP status, defaulting to 500.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the user-facing message of err.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}
