// Package fault defines the error taxonomy shared across the gateway.
// Every error that crosses a package boundary on its way to an HTTP
// response carries a Kind so the relay layer can pick a status code
// without inspecting vendor error types.
package fault

import (
	"errors"
	"fmt"
)

// Kind categorizes a failure for the HTTP relay layer.
type Kind string

const (
	// UnsupportedMediaType means the declared MIME type of an upload is
	// not in the accepted set. No file is staged when this is returned.
	UnsupportedMediaType Kind = "UnsupportedMediaType"

	// PayloadTooLarge means an upload exceeded the configured size cap.
	PayloadTooLarge Kind = "PayloadTooLarge"

	// EmptyRequest means no content parts were provided for assembly.
	EmptyRequest Kind = "EmptyRequest"

	// UpstreamUnavailable covers transient upstream failures: timeouts,
	// rate limits, and 5xx responses. Callers may retry.
	UpstreamUnavailable Kind = "UpstreamUnavailable"

	// UpstreamRejected means the upstream refused the content itself
	// (invalid or unsupported at the vendor). Retrying the same request
	// will not help.
	UpstreamRejected Kind = "UpstreamRejected"

	// InternalStagingFailure covers local disk errors while staging.
	InternalStagingFailure Kind = "InternalStagingFailure"

	// Internal is the fallback for everything else.
	Internal Kind = "Internal"
)

// Error pairs a Kind with a client-safe message. The wrapped cause, if
// any, is for logs only and is never serialized to clients.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates an Error with no underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error around an underlying cause.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf extracts the Kind from err, or Internal if err carries none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Internal
}

// MessageOf extracts the client-safe message from err. Errors without a
// Kind get a generic message so internal detail never leaks.
func MessageOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	return "internal error"
}
