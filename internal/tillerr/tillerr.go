// Package tillerr classifies the errors a register can surface.
//
// The kind decides what the terminal does with an error: user-correctable
// and state-violation errors are shown to the operator and leave the
// transaction alone, concurrency errors clear the local view and reload
// it, integration errors block only the operation that needed the
// collaborator, and bugs are shown verbatim for escalation.
package tillerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind categorises an error by how the register must react to it.
type Kind string

const (
	// KindUser covers missing permissions, bad numeric input, unallocated
	// stock, overpayment and refunds that are too large.
	KindUser Kind = "USER_CORRECTABLE"

	// KindState covers operations attempted in the wrong state: closed
	// transactions, no open session, stocktake already started.
	KindState Kind = "STATE_VIOLATION"

	// KindConcurrency means another terminal changed the data first.
	KindConcurrency Kind = "CONCURRENCY"

	// KindIntegration means a printer or payment driver is unavailable.
	KindIntegration Kind = "INTEGRATION"

	// KindBug is a configuration error, such as a modifier leaving a
	// proposed sale invalid.
	KindBug Kind = "BUG"
)

// Error is a till error with a user-facing message.
type Error struct {
	Kind    Kind
	Message string

	// Modifier names the modifier responsible for a KindBug error.
	Modifier string

	Err error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Modifier != "" {
		msg = fmt.Sprintf("modifier %q: %s", e.Modifier, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// User returns a user-correctable error.
func User(format string, args ...interface{}) *Error {
	return &Error{Kind: KindUser, Message: fmt.Sprintf(format, args...)}
}

// State returns a state-violation error.
func State(format string, args ...interface{}) *Error {
	return &Error{Kind: KindState, Message: fmt.Sprintf(format, args...)}
}

// Concurrent returns a concurrency error wrapping the cause.
func Concurrent(msg string, err error) *Error {
	return &Error{Kind: KindConcurrency, Message: msg, Err: err}
}

// Integration returns an integration error wrapping the cause.
func Integration(msg string, err error) *Error {
	return &Error{Kind: KindIntegration, Message: msg, Err: err}
}

// Bug returns a configuration error attributed to a modifier.
func Bug(modifier, format string, args ...interface{}) *Error {
	return &Error{Kind: KindBug, Modifier: modifier, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or "" if err is not a till error.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}

// Is reports whether err is a till error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// MessageOf returns the operator-facing message of err.
func MessageOf(err error) string {
	var te *Error
	if errors.As(err, &te) {
		if te.Modifier != "" {
			return fmt.Sprintf("modifier %q: %s", te.Modifier, te.Message)
		}
		return te.Message
	}
	return err.Error()
}

// HTTPStatus maps an error to the status code the API returns for it.
// Errors that are not till errors are treated as internal.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindUser:
		return http.StatusBadRequest
	case KindState, KindConcurrency:
		return http.StatusConflict
	case KindIntegration:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Body is the JSON error body returned by the API. Reload tells the
// client to discard its view and fetch it again.
type Body struct {
	Error  string `json:"error"`
	Kind   Kind   `json:"kind,omitempty"`
	Reload bool   `json:"reload,omitempty"`
}

// BodyOf builds the API error body for err.
func BodyOf(err error) Body {
	kind := KindOf(err)
	msg := MessageOf(err)
	if kind == KindBug {
		msg = err.Error()
	}
	return Body{Error: msg, Kind: kind, Reload: kind == KindConcurrency}
}
