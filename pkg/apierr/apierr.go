// Package apierr defines the closed error taxonomy for calls to the
// remote model endpoint. Errors are classified exactly once, at the HTTP
// boundary of the providers; everything above switches on Kind and never
// inspects raw transport errors.
package apierr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindUnknown covers anything the boundary could not classify.
	// Never retried.
	KindUnknown Kind = iota

	// Retriable kinds.
	KindTimeout
	KindTransient
	KindConnection
	KindUnavailable

	// KindInvalidRequest: malformed or too-large request, bad parameters.
	// The call would fail identically on every attempt, so it is never
	// retried.
	KindInvalidRequest
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindTransient:
		return "transient_api_error"
	case KindConnection:
		return "connection_error"
	case KindUnavailable:
		return "service_unavailable"
	case KindInvalidRequest:
		return "invalid_request"
	default:
		return "unknown"
	}
}

// Error carries the classified kind together with the underlying cause.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("api error (%s, status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error (%s): %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, statusCode int, message string) *Error {
	return &Error{Kind: kind, StatusCode: statusCode, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the classified kind from anywhere in err's chain.
// Unclassified errors report KindUnknown.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// Retriable reports whether err belongs to a kind worth retrying.
func Retriable(err error) bool {
	switch KindOf(err) {
	case KindTimeout, KindTransient, KindConnection, KindUnavailable:
		return true
	default:
		return false
	}
}

// ClassifyStatus maps an HTTP status from the model endpoint onto a Kind.
func ClassifyStatus(status int) Kind {
	switch {
	case status == 408:
		return KindTimeout
	case status == 429, status == 500, status == 502:
		return KindTransient
	case status == 503, status == 504:
		return KindUnavailable
	case status >= 400 && status < 500:
		return KindInvalidRequest
	default:
		return KindUnknown
	}
}
