package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/hostline/packages/http"
)

// Exit codes for hostline CLI
const (
	// ExitSuccess indicates the request completed
	ExitSuccess = 0

	// ExitRequestFailure indicates a failure with no more specific code
	ExitRequestFailure = 1

	// ExitValidationError indicates a request rejected before sending
	ExitValidationError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates no response or a timeout
	ExitNetworkError = 4

	// ExitAuthError indicates a 401 that could not be answered
	ExitAuthError = 5

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries the process exit code for an error
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

func configError(err error) error {
	return withExitCode(ExitConfigError, fmt.Errorf("config: %w", err))
}

// requestExitCode maps a client error onto an exit code
func requestExitCode(err error) int {
	switch http.ErrorKind(err) {
	case "":
		return ExitSuccess
	case "validation", "unsupported":
		return ExitValidationError
	case "transport", "timeout":
		return ExitNetworkError
	case "auth":
		return ExitAuthError
	default:
		return ExitRequestFailure
	}
}
