package cli

import (
	"errors"
	"fmt"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Exit codes.
const (
	ExitSuccess   = 0
	ExitUserError = 1 // bad input, unknown command, invalid quantity
	ExitSysError  = 2 // storage, configuration, filesystem
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// userError reports bad input.
func userError(message string, err error) *ExitError {
	return &ExitError{Code: ExitUserError, Message: message, Err: err}
}

// sysError reports an environment or storage failure.
func sysError(message string, err error) *ExitError {
	return &ExitError{Code: ExitSysError, Message: message, Err: err}
}

// commandError maps a facade error onto an ExitError.
func commandError(message string, err error) *ExitError {
	if types.IsValidation(err) {
		return userError(message, err)
	}
	return sysError(message, err)
}

// ExitCode extracts the exit code from err. Errors that are not an
// ExitError, such as cobra usage errors, count as user errors.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitUserError
}
