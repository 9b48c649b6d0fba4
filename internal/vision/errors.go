package vision

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable is returned when the analyzer cannot be called at all.
	ErrUnavailable = errors.New("vision: analyzer unavailable")

	// ErrNoAPIKey is returned when no API key is configured.
	ErrNoAPIKey = errors.New("vision: API key required")

	// ErrInsecureTransport is returned when secure transport is required but
	// the endpoint is not HTTPS.
	ErrInsecureTransport = errors.New("vision: secure transport required")

	// ErrNotPossible is returned when the model reports that the image
	// cannot be measured.
	ErrNotPossible = errors.New("vision: measurement not possible")

	// ErrMalformed is returned when the response does not match the schema.
	ErrMalformed = errors.New("vision: malformed response")
)

// NotPossibleError carries the model's explanation for an unmeasurable image.
type NotPossibleError struct {
	Notes string
}

func (e *NotPossibleError) Error() string {
	return fmt.Sprintf("vision: measurement not possible: %s", e.Notes)
}

// Is reports a match against ErrNotPossible.
func (e *NotPossibleError) Is(target error) bool {
	return target == ErrNotPossible
}

// APIError represents an error response from the vision API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the API.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("vision: API error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true for rate limiting and server errors.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == 429 || (e.StatusCode >= 500 && e.StatusCode < 600)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}
