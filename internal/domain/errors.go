package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport signals a network failure or an aborted request.
	ErrTransport = errors.New("backend unreachable")
	// ErrBackendStatus signals a non-2xx backend response.
	ErrBackendStatus = errors.New("backend returned an error status")
	// ErrMalformedResponse signals a response body that does not match the expected schema.
	ErrMalformedResponse = errors.New("malformed backend response")
	// ErrNoFile signals a file selection without a file.
	ErrNoFile = errors.New("no file selected")
	// ErrSuperseded signals that a newer request of the same kind replaced this one.
	ErrSuperseded = errors.New("superseded by a newer request")
)

// StatusError wraps ErrBackendStatus with the response status and the backend's detail.
type StatusError struct {
	Endpoint string
	Code     int
	Detail   string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s responded %d", ErrBackendStatus.Error(), e.Endpoint, e.Code)
	}
	return fmt.Sprintf("%s: %s responded %d: %s", ErrBackendStatus.Error(), e.Endpoint, e.Code, e.Detail)
}

func (e *StatusError) Unwrap() error { return ErrBackendStatus }

// NewStatusError creates a backend status error.
func NewStatusError(endpoint string, code int, detail string) error {
	return &StatusError{Endpoint: endpoint, Code: code, Detail: detail}
}

// MalformedError wraps ErrMalformedResponse with the offending field.
type MalformedError struct {
	Endpoint string
	Field    string
	Reason   string
}

func (e *MalformedError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s from %s: %s", ErrMalformedResponse.Error(), e.Endpoint, e.Reason)
	}
	return fmt.Sprintf("%s from %s: field %q %s", ErrMalformedResponse.Error(), e.Endpoint, e.Field, e.Reason)
}

func (e *MalformedError) Unwrap() error { return ErrMalformedResponse }

// NewMalformed creates a malformed response error.
func NewMalformed(endpoint, field, reason string) error {
	return &MalformedError{Endpoint: endpoint, Field: field, Reason: reason}
}
