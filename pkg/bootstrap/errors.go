package bootstrap

import (
	"fmt"

	"golang.org/x/xerrors"
)

// ErrorKind categorizes bootstrap failures
type ErrorKind string

const (
	// ErrorKindConfig marks missing or malformed configuration: environment variables,
	// the registry snapshot, rebar.config or the application descriptor.
	ErrorKindConfig ErrorKind = "config"
	// ErrorKindInput marks store paths that do not follow the nix packaging conventions
	ErrorKindInput ErrorKind = "input"
	// ErrorKindFileSystem marks failures to read, write or link files
	ErrorKindFileSystem ErrorKind = "filesystem"
)

// Error is a categorized bootstrap failure. All kinds are fatal.
type Error struct {
	Kind    ErrorKind
	Subject string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s: %s", e.Kind, e.Subject, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind ErrorKind, subject, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Subject: subject,
		Message: message,
		Cause:   cause,
	}
}

// IsKind reports whether err is a bootstrap error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var berr *Error
	if !xerrors.As(err, &berr) {
		return false
	}
	return berr.Kind == kind
}
