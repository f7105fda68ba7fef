package services

import (
	"errors"
	"fmt"
)

// Parse failure reasons.
const (
	ReasonMalformedResponse = "malformed_response"
	ReasonMissingField      = "missing_field"
)

// ExtractionError means no usable text could be read from the uploaded file.
type ExtractionError struct {
	Filename string
	Reason   string
	Err      error
}

func (e *ExtractionError) Error() string {
	msg := "extraction failed"
	if e.Filename != "" {
		msg = fmt.Sprintf("extraction failed for %s", e.Filename)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ConfigurationError means the LLM credentials are missing or were rejected.
type ConfigurationError struct {
	Setting string
	Reason  string
	Err     error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("configuration error: %s %s", e.Setting, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// TransportError is a failed LLM round trip.
type TransportError struct {
	Provider   string
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s request timed out: %v", e.Provider, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s request failed with status %d: %v", e.Provider, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// Temporary reports whether the call is worth retrying: rate limits, server
// errors and network failures are; timeouts and client errors are not.
func (e *TransportError) Temporary() bool {
	if e.Timeout {
		return false
	}
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == 408 || e.StatusCode == 429 || e.StatusCode >= 500
}

// ParseError means the LLM reply did not have the expected structure.
type ParseError struct {
	Reason string
	Field  string
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("parse error: %s (%s)", e.Reason, e.Field)
	}
	return "parse error: " + e.Reason
}

// Is matches any *ParseError with the same reason, so callers can write
// errors.Is(err, &ParseError{Reason: ReasonMissingField}).
func (e *ParseError) Is(target error) bool {
	var t *ParseError
	if !errors.As(target, &t) {
		return false
	}
	return t.Reason == e.Reason && (t.Field == "" || t.Field == e.Field)
}

var (
	ErrMalformedResponse = &ParseError{Reason: ReasonMalformedResponse}
	ErrMissingField      = &ParseError{Reason: ReasonMissingField}
)
