// Package huberrors provides sentinel and custom error types for the application.
package huberrors

import (
	"fmt"
)

// ErrNotFound represents a "not found" error.
// Use when a requested resource doesn't exist.
var ErrNotFound = &NotFoundError{}

// NotFoundError is a sentinel error for resources that are not found.
type NotFoundError struct {
	Resource string
	Message  string
}

// NewNotFoundError creates a new NotFoundError with a custom message.
func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Message:  message,
	}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Resource != "" {
		return e.Resource + " not found"
	}

	return "resource not found"
}

// Is implements the error interface for error comparison.
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)

	return ok
}

// ErrValidation represents a validation error.
// Use when client input fails validation.
var ErrValidation = &ValidationError{}

// ValidationError is a sentinel error for validation failures.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a new ValidationError with a custom message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Field != "" {
		return "validation failed for field: " + e.Field
	}

	return "validation error"
}

// Is implements the error interface for error comparison.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)

	return ok
}

// ErrorClass is a coarse classification of a network or upstream failure.
type ErrorClass string

// Error classes, most specific first. ClassUnknown is only used when nothing else matches.
const (
	ClassTimeout           ErrorClass = "timeout"
	ClassDNS               ErrorClass = "dns"
	ClassConnectionRefused ErrorClass = "connection_refused"
	ClassConnectionReset   ErrorClass = "connection_reset"
	ClassTLS               ErrorClass = "tls"
	ClassHTTP4xx           ErrorClass = "http_4xx"
	ClassHTTP5xx           ErrorClass = "http_5xx"
	ClassDecode            ErrorClass = "decode"
	ClassCircuitOpen       ErrorClass = "circuit_open"
	ClassCanceled          ErrorClass = "canceled"
	ClassUnknown           ErrorClass = "unknown"
)

// Describe returns a short human-readable cause for the class.
func (c ErrorClass) Describe() string {
	switch c {
	case ClassTimeout:
		return "request timed out"
	case ClassDNS:
		return "DNS lookup failed"
	case ClassConnectionRefused:
		return "connection refused"
	case ClassConnectionReset:
		return "connection reset by peer"
	case ClassTLS:
		return "TLS handshake failed"
	case ClassHTTP4xx:
		return "upstream rejected the request"
	case ClassHTTP5xx:
		return "upstream server error"
	case ClassDecode:
		return "malformed upstream response"
	case ClassCircuitOpen:
		return "upstream circuit open"
	case ClassCanceled:
		return "request canceled"
	case ClassUnknown:
		return "unknown error"
	}

	return string(c)
}

// ErrSourceUnavailable is the sentinel for a forecast source that exhausted retries and the fallback transport.
var ErrSourceUnavailable = &SourceUnavailableError{}

// SourceUnavailableError reports that one forecast source could not be fetched.
type SourceUnavailableError struct {
	Source     string
	Class      ErrorClass
	StatusCode int
	Err        error
}

// NewSourceUnavailableError creates a SourceUnavailableError.
func NewSourceUnavailableError(source string, class ErrorClass, statusCode int, err error) *SourceUnavailableError {
	return &SourceUnavailableError{Source: source, Class: class, StatusCode: statusCode, Err: err}
}

// Error implements the error interface.
func (e *SourceUnavailableError) Error() string {
	if e.Source == "" {
		return "forecast source unavailable"
	}

	msg := fmt.Sprintf("forecast source %s unavailable: %s", e.Source, e.Class.Describe())
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}

	return msg
}

// Unwrap returns the underlying cause.
func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// Is implements the error interface for error comparison.
func (e *SourceUnavailableError) Is(target error) bool {
	_, ok := target.(*SourceUnavailableError)

	return ok
}

// ErrAcquisitionFailed is the sentinel for an acquisition that failed at every horizon.
var ErrAcquisitionFailed = &AcquisitionFailedError{}

// AcquisitionFailedError reports that no horizon could be fetched. Detail is derived from the
// lowest-level classified cause.
type AcquisitionFailedError struct {
	Detail  string
	Horizon int
	Err     error
}

// NewAcquisitionFailedError creates an AcquisitionFailedError.
func NewAcquisitionFailedError(detail string, horizon int, err error) *AcquisitionFailedError {
	return &AcquisitionFailedError{Detail: detail, Horizon: horizon, Err: err}
}

// Error implements the error interface.
func (e *AcquisitionFailedError) Error() string {
	if e.Detail == "" {
		return "weather acquisition failed"
	}

	return fmt.Sprintf("weather acquisition failed for %d-day horizon: %s", e.Horizon, e.Detail)
}

// Unwrap returns the underlying cause.
func (e *AcquisitionFailedError) Unwrap() error {
	return e.Err
}

// Is implements the error interface for error comparison.
func (e *AcquisitionFailedError) Is(target error) bool {
	_, ok := target.(*AcquisitionFailedError)

	return ok
}

// ErrTextGenerationFailed is the sentinel for a failed report text generation.
var ErrTextGenerationFailed = &TextGenerationFailedError{}

// TextGenerationFailedError wraps a failure of the text generation backend.
type TextGenerationFailedError struct {
	Backend string
	Err     error
}

// NewTextGenerationFailedError creates a TextGenerationFailedError.
func NewTextGenerationFailedError(backend string, err error) *TextGenerationFailedError {
	return &TextGenerationFailedError{Backend: backend, Err: err}
}

// Error implements the error interface.
func (e *TextGenerationFailedError) Error() string {
	if e.Err == nil {
		return "text generation failed"
	}

	return fmt.Sprintf("text generation failed (%s): %v", e.Backend, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TextGenerationFailedError) Unwrap() error {
	return e.Err
}

// Is implements the error interface for error comparison.
func (e *TextGenerationFailedError) Is(target error) bool {
	_, ok := target.(*TextGenerationFailedError)

	return ok
}

// ErrEmbeddingDegraded is the sentinel for an embedding strategy that failed and fell through.
var ErrEmbeddingDegraded = &EmbeddingDegradedError{}

// EmbeddingDegradedError records that strategy failed and a later one was used. It is logged, never returned to callers.
type EmbeddingDegradedError struct {
	Strategy string
	Err      error
}

// NewEmbeddingDegradedError creates an EmbeddingDegradedError.
func NewEmbeddingDegradedError(strategy string, err error) *EmbeddingDegradedError {
	return &EmbeddingDegradedError{Strategy: strategy, Err: err}
}

// Error implements the error interface.
func (e *EmbeddingDegradedError) Error() string {
	if e.Strategy == "" {
		return "embedding degraded"
	}

	return fmt.Sprintf("embedding strategy %s failed: %v", e.Strategy, e.Err)
}

// Unwrap returns the underlying cause.
func (e *EmbeddingDegradedError) Unwrap() error {
	return e.Err
}

// Is implements the error interface for error comparison.
func (e *EmbeddingDegradedError) Is(target error) bool {
	_, ok := target.(*EmbeddingDegradedError)

	return ok
}

// ErrSimilarityBackendUnavailable is the sentinel for a failed vector query.
var ErrSimilarityBackendUnavailable = &SimilarityBackendUnavailableError{}

// SimilarityBackendUnavailableError wraps a vector query failure that triggered the estimated ranking.
type SimilarityBackendUnavailableError struct {
	Err error
}

// NewSimilarityBackendUnavailableError creates a SimilarityBackendUnavailableError.
func NewSimilarityBackendUnavailableError(err error) *SimilarityBackendUnavailableError {
	return &SimilarityBackendUnavailableError{Err: err}
}

// Error implements the error interface.
func (e *SimilarityBackendUnavailableError) Error() string {
	if e.Err == nil {
		return "similarity backend unavailable"
	}

	return "similarity backend unavailable: " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *SimilarityBackendUnavailableError) Unwrap() error {
	return e.Err
}

// Is implements the error interface for error comparison.
func (e *SimilarityBackendUnavailableError) Is(target error) bool {
	_, ok := target.(*SimilarityBackendUnavailableError)

	return ok
}
