// Package neterr defines the error taxonomy shared across the engine: a
// small set of kinds, each category-prefixed when displayed, carrying the
// underlying cause for unwrapping.
package neterr

import "fmt"

// Kind tags an Error with the subsystem that raised it.
type Kind string

const (
	Config    Kind = "config"
	IO        Kind = "io"
	Datastore Kind = "datastore"
	Process   Kind = "process"
	Remote    Kind = "remote"
	Plugin    Kind = "plugin"
)

func (k Kind) label() string {
	switch k {
	case Config:
		return "Error with netdox config"
	case IO:
		return "Error with filesystem or archive IO"
	case Datastore:
		return "Error with the datastore"
	case Process:
		return "Error during node processing"
	case Remote:
		return "Error with the remote publishing backend"
	case Plugin:
		return "Error with a plugin"
	default:
		return "Error"
	}
}

// Error is a category-tagged error. It implements Unwrap so callers can use
// errors.Is/As against the wrapped cause.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind.label(), e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind.label(), e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

func new(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

func Configf(cause error, format string, args ...any) *Error {
	return new(Config, fmt.Sprintf(format, args...), cause)
}

func IOf(cause error, format string, args ...any) *Error {
	return new(IO, fmt.Sprintf(format, args...), cause)
}

func Datastoref(cause error, format string, args ...any) *Error {
	return new(Datastore, fmt.Sprintf(format, args...), cause)
}

func Processf(cause error, format string, args ...any) *Error {
	return new(Process, fmt.Sprintf(format, args...), cause)
}

func Remotef(cause error, format string, args ...any) *Error {
	return new(Remote, fmt.Sprintf(format, args...), cause)
}

func Pluginf(cause error, format string, args ...any) *Error {
	return new(Plugin, fmt.Sprintf(format, args...), cause)
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if as, ok := err.(*Error); ok {
		e = as
	} else {
		return false
	}
	return e.Kind == kind
}
