package http

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError reports a request rejected before any network activity
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return e.Err }

// TransportError reports that no response was received at all
type TransportError struct {
	Method string
	URI    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request failed without response: %s %s: %v", e.Method, e.URI, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthError reports a 401 that digest negotiation could not resolve
type AuthError struct {
	StatusCode int
	Message    string
	// Response is the last 401 received, if any.
	Response *Response
	Err      error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (HTTP %d): %v", e.Message, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TimeoutError reports that a request did not settle before its deadline
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timed out after %s", e.Timeout)
}

// UnsupportedFeatureError reports a request option the chosen path cannot honor
type UnsupportedFeatureError struct {
	Feature string
}

func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("%s not implemented", e.Feature)
}

// WorkerError is a failure reported by a Worker, with the status it carried
type WorkerError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *WorkerError) Error() string { return e.Message }
func (e *WorkerError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.StatusCode
	}
	var workerErr *WorkerError
	if errors.As(err, &workerErr) {
		return workerErr.StatusCode
	}
	return 0
}

// ErrorKind names the taxonomy entry of err, for logs and records
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}

	var (
		validationErr  *ValidationError
		transportErr   *TransportError
		authErr        *AuthError
		timeoutErr     *TimeoutError
		unsupportedErr *UnsupportedFeatureError
		workerErr      *WorkerError
	)

	switch {
	case errors.As(err, &validationErr):
		return "validation"
	case errors.As(err, &transportErr):
		return "transport"
	case errors.As(err, &authErr):
		return "auth"
	case errors.As(err, &timeoutErr):
		return "timeout"
	case errors.As(err, &unsupportedErr):
		return "unsupported"
	case errors.As(err, &workerErr):
		return "worker"
	default:
		return "unknown"
	}
}
