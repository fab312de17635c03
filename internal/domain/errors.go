package domain

import "errors"

// Validation errors are rejected before any dispatch and surfaced verbatim.
var (
	ErrEmptyMessage   = errors.New("message is required")
	ErrNoChannels     = errors.New("at least one channel must be selected")
	ErrTitleRequired  = errors.New("title is required for push notifications")
	ErrUnknownChannel = errors.New("unknown channel")
)

// Auth errors are rejected before any channel logic runs.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// IsValidationError reports whether err is a pre-dispatch validation failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyMessage) ||
		errors.Is(err, ErrNoChannels) ||
		errors.Is(err, ErrTitleRequired) ||
		errors.Is(err, ErrUnknownChannel)
}
