package vecdemo

import (
	"errors"

	"github.com/kailas-cloud/vecdemo/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrTransport         = domain.ErrTransport
	ErrBackendStatus     = domain.ErrBackendStatus
	ErrMalformedResponse = domain.ErrMalformedResponse
	ErrNoFile            = domain.ErrNoFile
)

// ErrBackendNotConfigured is returned when calling a backend the client was built without.
var ErrBackendNotConfigured = errors.New("vecdemo: backend not configured")
