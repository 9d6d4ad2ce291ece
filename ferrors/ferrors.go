// Package ferrors defines the error kinds shared across the engine. Every
// fatal condition raised by the parser, address resolver, interpreter,
// operation handlers, tool registry, or LLM mediator wraps one of these
// sentinels so callers can classify failures with errors.Is, and the CLI can
// map them to a stable set of process exit codes.
package ferrors

import "errors"

// Kind classifies a failure into one of a fixed set of causes.
type Kind string

const (
	KindParseError    Kind = "ParseError"
	KindBlockNotFound Kind = "BlockNotFound"
	KindFileNotFound  Kind = "FileNotFound"
	KindToolError     Kind = "ToolError"
	KindLLMError      Kind = "LLMError"
	KindShellError    Kind = "ShellError"
	KindCancelled     Kind = "Cancelled"
	KindInternal      Kind = "Internal"
	KindChildFailed   Kind = "ChildFailed"
)

// Sentinels for errors.Is matching independent of message text.
var (
	ErrParse        = errors.New(string(KindParseError))
	ErrBlockNotFound = errors.New(string(KindBlockNotFound))
	ErrFileNotFound  = errors.New(string(KindFileNotFound))
	ErrTool          = errors.New(string(KindToolError))
	ErrLLM           = errors.New(string(KindLLMError))
	ErrShell         = errors.New(string(KindShellError))
	ErrCancelled     = errors.New(string(KindCancelled))
	ErrInternal      = errors.New(string(KindInternal))
)

func sentinelFor(k Kind) error {
	switch k {
	case KindParseError:
		return ErrParse
	case KindBlockNotFound:
		return ErrBlockNotFound
	case KindFileNotFound:
		return ErrFileNotFound
	case KindToolError:
		return ErrTool
	case KindLLMError:
		return ErrLLM
	case KindShellError:
		return ErrShell
	case KindCancelled:
		return ErrCancelled
	default:
		return ErrInternal
	}
}

// Error is a classified, frame-aware failure. Frame names the file/operation
// that raised it so the CLI can print a clear failure chain.
type Error struct {
	Kind    Kind
	Frame   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Frame != "" {
		return string(e.Kind) + " (" + e.Frame + "): " + msg
	}
	return string(e.Kind) + ": " + msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	if e.Cause != nil {
		return e.Cause
	}
	return sentinelFor(e.Kind)
}

// Is lets errors.Is(err, ferrors.ErrParse) match an *Error of that Kind even
// when Cause is nil or unrelated.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	return target == sentinelFor(e.Kind)
}

// New constructs a classified error.
func New(kind Kind, frame, message string) *Error {
	return &Error{Kind: kind, Frame: frame, Message: message}
}

// Wrap classifies an existing error under kind, recording frame for tracing.
func Wrap(kind Kind, frame string, cause error) *Error {
	return &Error{Kind: kind, Frame: frame, Cause: cause}
}

// ChildFailed wraps a child @run's failure: the caller's operation fails
// with the child's cause attached unless the caller is itself top level.
type ChildFailed struct {
	File  string
	Cause error
}

func (e *ChildFailed) Error() string {
	return "ChildFailed (" + e.File + "): " + e.Cause.Error()
}

func (e *ChildFailed) Unwrap() error {
	return e.Cause
}
