package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/velozfibra/portal/internal/repository"
	"github.com/velozfibra/portal/internal/service"
	"gopkg.in/yaml.v3"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation failed (storage, network, not found)
	ExitCommandError = 2 // Bad input (invalid flags, fields or arguments)
)

// ExitError carries the exit code the process should end with.
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

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Field errors are input
// errors; anything else without an explicit code is a failure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, service.ErrInvalidField) || errors.Is(err, service.ErrMissingField) {
		return ExitCommandError
	}
	return ExitFailure
}

func notFound(id int) error {
	return WrapExitError(ExitFailure, fmt.Sprintf("goal %d", id), repository.ErrGoalNotFound)
}

// OutputFormatter writes command results as text, JSON or YAML.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Print encodes data for json and yaml formats and calls text otherwise.
func (f *OutputFormatter) Print(data any, text func(w io.Writer) error) error {
	switch f.Format {
	case "json":
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(data)
	case "yaml":
		enc := yaml.NewEncoder(f.Writer)
		enc.SetIndent(2)
		err := enc.Encode(data)
		if err != nil {
			return err
		}
		return enc.Close()
	default:
		return text(f.Writer)
	}
}
