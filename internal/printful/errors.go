package printful

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnavailable is returned when the circuit breaker rejects a call.
	ErrUnavailable = errors.New("printful: service temporarily unavailable")
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("printful: api key is not configured")
)

// APIError is a non-2xx response from Printful.
type APIError struct {
	Operation  string
	StatusCode int
	Reason     string
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	parts := []string{fmt.Sprintf("printful: %s: status %d", e.Operation, e.StatusCode)}
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	return strings.Join(parts, ": ")
}

// IsClientError reports whether the failure was caused by the request rather than the provider.
func (e *APIError) IsClientError() bool {
	return e != nil && e.StatusCode >= 400 && e.StatusCode < 500
}

// IsNotFound reports whether err is a 404 from Printful.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// ErrorMessage returns the provider's message for err when it is an APIError, else err.Error().
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		if apiErr.Reason != "" {
			return apiErr.Reason
		}
	}
	return err.Error()
}
