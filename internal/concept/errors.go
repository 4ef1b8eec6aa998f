package concept

import (
	"errors"
	"fmt"
)

// Common errors returned by the concept service client.
var (
	// ErrAuthError indicates an authentication error (missing/invalid API key).
	ErrAuthError = errors.New("concept service authentication error")

	// ErrRateLimited indicates the rate limit has been exceeded.
	ErrRateLimited = errors.New("concept service rate limit exceeded")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with concept service")

	// ErrInvalidResponse indicates the service returned something that could
	// not be parsed, even after a retry.
	ErrInvalidResponse = errors.New("invalid response from concept service")
)

// APIError represents an error response from the concept service.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("concept service error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}
