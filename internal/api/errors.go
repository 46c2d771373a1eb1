package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// NetworkError is a failure to reach the backend or read its reply:
// connection refused, DNS, TLS, timeout or a truncated body.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the request ran out of time
func (e *NetworkError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// ServiceError is a non-2xx reply from the backend.
// Message is the server's own explanation, empty when it gave none.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("service error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("service error %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Retryable reports whether repeating the request may succeed
func (e *ServiceError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// FormatError is a reply that arrived intact but does not have the
// expected shape
type FormatError struct {
	Op  string
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: unexpected response format: %v", e.Op, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// ErrorKind classifies err for logging: "network", "service", "format" or "unknown"
func ErrorKind(err error) string {
	var netErr *NetworkError
	var svcErr *ServiceError
	var fmtErr *FormatError
	switch {
	case errors.As(err, &svcErr):
		return "service"
	case errors.As(err, &fmtErr):
		return "format"
	case errors.As(err, &netErr),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return "network"
	default:
		return "unknown"
	}
}

// ServerMessage returns the explanation the backend attached to err, if any
func ServerMessage(err error) (string, bool) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.Message != "" {
		return svcErr.Message, true
	}
	return "", false
}
