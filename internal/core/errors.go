package core

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// Predefined Error Values
// =============================================================================

var (
	// ErrTimeout means the model did not answer within the request bound.
	// It is terminal for the stage and never retried.
	ErrTimeout = errors.New("generation timed out")

	// ErrGeneration means the model output could not be turned into a value,
	// either repeatedly or because it was structurally unusable.
	ErrGeneration = errors.New("generation failed")

	// ErrSafetyRejected means the content classifier flagged the output.
	ErrSafetyRejected = errors.New("generated content rejected by safety classifier")

	// ErrCredentials and ErrQuota are only reported by key validation.
	ErrCredentials = errors.New("invalid credentials")
	ErrQuota       = errors.New("insufficient quota")

	ErrInvalidRequest = errors.New("invalid generation request")
)

// =============================================================================
// Error Types
// =============================================================================

// ProcessingError is raised when generated text cannot be processed into the
// value a stage needs. The retry controller counts these and replays the
// request.
type ProcessingError struct {
	Stage     Stage
	Step      string
	Details   string
	Cause     error
	Timestamp time.Time
}

func (e *ProcessingError) Error() string {
	msg := fmt.Sprintf("processing %s output failed at %s: %s", e.Stage, e.Step, e.Details)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

// StageError reports the terminal outcome of a stage. Cause is one of the
// sentinel errors above, so errors.Is works on it.
type StageError struct {
	Stage    Stage
	Attempts int
	Cause    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed (attempts %d): %v", e.Stage, e.Attempts, e.Cause)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// APIError is an error payload returned by the completion endpoint.
type APIError struct {
	Type       string
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("completion API error %s (status %d)", e.Type, e.StatusCode)
	}
	return fmt.Sprintf("completion API error %s (status %d): %s", e.Type, e.StatusCode, e.Message)
}

// Unwrap maps the endpoint's error types onto the credential sentinels.
func (e *APIError) Unwrap() error {
	switch e.Type {
	case "invalid_request_error":
		return ErrCredentials
	case "insufficient_quota":
		return ErrQuota
	}
	return nil
}

// =============================================================================
// Error Classification Functions
// =============================================================================

// IsProcessingError checks if an error is a processing error.
func IsProcessingError(err error) bool {
	if err == nil {
		return false
	}
	var processingErr *ProcessingError
	return errors.As(err, &processingErr)
}

// IsTerminal reports whether an error ends a stage without a retry.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrSafetyRejected)
}

// =============================================================================
// Error Creation Helpers
// =============================================================================

// NewProcessingError creates a ProcessingError with a timestamp.
func NewProcessingError(stage Stage, step, details string) *ProcessingError {
	return &ProcessingError{
		Stage:     stage,
		Step:      step,
		Details:   details,
		Timestamp: time.Now(),
	}
}
