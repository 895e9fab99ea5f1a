package model

import (
	"errors"
	"fmt"
	"strings"
)

// Generic messages returned to callers. Details stay in the logs.
const (
	MsgInvalidCoordinates = "Invalid or missing location coordinates"
	MsgInvalidZipCode     = "Missing or invalid ZIP code"
	MsgConfiguration      = "Server configuration error"
	MsgTooManyRequests    = "Too many requests. Please try again later."
)

var (
	// ErrEmptySet is returned when picking from an empty candidate list.
	ErrEmptySet = errors.New("cannot pick from an empty set")

	// ErrSpinInProgress is returned when a spin is requested while one is running.
	ErrSpinInProgress = errors.New("spin already in progress")

	// ErrNoSpin is returned when finishing a spin that was never started.
	ErrNoSpin = errors.New("no spin in progress")
)

// ValidationError reports bad client input. Maps to HTTP 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// ConfigurationError reports missing server configuration. Maps to HTTP 500
// with a generic message; Missing is for logs only.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return "missing required configuration: " + strings.Join(e.Missing, ", ")
}

// UpstreamStatusError reports a non-success status string from Google.
type UpstreamStatusError struct {
	Service string
	Status  string
	// Message is the upstream error_message. It is logged, never returned.
	Message string
}

func (e *UpstreamStatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s upstream status %s", e.Service, e.Status)
	}
	return fmt.Sprintf("%s upstream status %s: %s", e.Service, e.Status, e.Message)
}

// TransportError reports a network failure, timeout or undecodable upstream reply.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SigningError is returned when a URL cannot be signed.
type SigningError struct {
	URL string
	Err error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("sign url: %v", e.Err)
}

func (e *SigningError) Unwrap() error { return e.Err }
