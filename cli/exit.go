// Package cli implements the fractalic command line: run, validate, tools,
// and serve, wired as cobra subcommands.
package cli

import "fmt"

// ExitError carries the process exit code a RunE failure should produce.
// Cobra's RunE returns this; main.go unwraps it with errors.As.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

func exitError(code int, format string, args ...any) *ExitError {
	return &ExitError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Exit codes per the document surface's external interface: 0 success,
// 1 parse/validation error, 2 runtime error, 3 cancelled.
const (
	ExitSuccess    = 0
	ExitValidation = 1
	ExitRuntime    = 2
	ExitCancelled  = 3
)
