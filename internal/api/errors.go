package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failed request the way the UI reports it.
type ErrorKind string

const (
	KindNetwork    ErrorKind = "network"
	KindAuth       ErrorKind = "auth"
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindServer     ErrorKind = "server"
	KindUnknown    ErrorKind = "unknown"
)

// FieldError is a server-side validation failure for one request field.
type FieldError struct {
	Field   string
	Message string
}

// Error is returned for every request that did not produce a successful response.
type Error struct {
	Kind   ErrorKind
	Status int          // HTTP status, 0 when no response was received
	Detail string       // Message supplied by the server, if any
	Fields []FieldError // Field errors from a 422 response, in server order
	Err    error        // Underlying transport error for KindNetwork
}

func (e *Error) Error() string {
	if e.Kind == KindNetwork {
		return fmt.Sprintf("network error: %v", e.Err)
	}
	return fmt.Sprintf("%s error (status %d): %s", e.Kind, e.Status, e.Message())
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the text shown to the user: the first field error for
// validation failures, else the server's own message, else a default for the kind.
func (e *Error) Message() string {
	if e.Kind == KindValidation && len(e.Fields) > 0 {
		return e.Fields[0].Field + ": " + e.Fields[0].Message
	}
	if e.Detail != "" {
		return e.Detail
	}
	switch e.Kind {
	case KindAuth:
		if e.Status == http.StatusUnauthorized {
			return "Authentication required. Please log in."
		}
		return "Access denied."
	case KindValidation:
		return "The submitted data is invalid."
	case KindNotFound:
		return "The requested resource was not found."
	case KindServer:
		if e.Status == http.StatusServiceUnavailable {
			return "The service is temporarily unavailable."
		}
		return "The server encountered an error."
	case KindNetwork:
		return "Could not connect to the server."
	default:
		return "An unknown error occurred."
	}
}

// KindForStatus maps an HTTP status code to an ErrorKind.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}

// KindOf returns the kind of an *Error anywhere in err's chain, or KindUnknown.
func KindOf(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// IsNetwork reports whether err is a request that never received a response.
func IsNetwork(err error) bool {
	return KindOf(err) == KindNetwork
}

// UserMessage returns the user-facing text for any error returned by this package.
func UserMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	return err.Error()
}
