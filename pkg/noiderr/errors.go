// Package noiderr defines the error taxonomy every noid operation returns
// through: a small struct carrying a stable Kind a caller can switch on,
// wrapped with go-errors for a stack trace at the point of origin.
package noiderr

import (
	"fmt"

	goerrors "github.com/go-errors/errors"
	"golang.org/x/xerrors"
)

// Kind enumerates the error taxonomy a noid session can return.
type Kind int

const (
	KindBadTemplate Kind = iota
	KindBadInput
	KindNotFound
	KindExhausted
	KindLongtermUnissued
	KindCirculationConflict
	KindIO
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindBadTemplate:
		return "ErrBadTemplate"
	case KindBadInput:
		return "ErrBadInput"
	case KindNotFound:
		return "ErrNotFound"
	case KindExhausted:
		return "ErrExhausted"
	case KindLongtermUnissued:
		return "ErrLongtermUnissued"
	case KindCirculationConflict:
		return "ErrCirculationConflict"
	case KindIO:
		return "ErrIO"
	case KindConfig:
		return "ErrConfig"
	default:
		return "ErrUnknown"
	}
}

// Error is the typed error every exported operation returns on failure: a
// stable Kind plus a human message, capturing the call site for diagnostics.
type Error struct {
	Kind    Kind
	Message string
	frame   xerrors.Frame
}

// New builds an Error, capturing the caller's frame.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		frame:   xerrors.Caller(1),
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// FormatError implements xerrors.Formatter.
func (e *Error) FormatError(p xerrors.Printer) error {
	p.Printf("%s: %s", e.Kind, e.Message)
	e.frame.Format(p)
	return nil
}

// Is lets errors.Is match on Kind alone, so callers can do
// errors.Is(err, noiderr.KindNotFound) style checks via Of.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// Of reports whether err is a *Error of the given Kind.
func Of(err error, kind Kind) bool {
	var e *Error
	if xerrors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Wrap converts an I/O-layer error into a *Error of the given kind whose
// message is the original error's text; the original error value and its
// stack trace are not retained.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	wrapped := goerrors.Wrap(err, 1)
	return New(kind, "%s", wrapped.Error())
}

// Buffer is the per-session error buffer: it always holds only the last
// user-visible message, available to callers via errmsg-style reads.
type Buffer struct {
	last string
}

// Push records err's message as the most recent user-visible error; a nil
// err leaves the buffer unchanged.
func (b *Buffer) Push(err error) {
	if err == nil {
		return
	}
	b.last = err.Error()
}

// Last returns the most recently pushed message, or "" if none.
func (b *Buffer) Last() string {
	return b.last
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.last = ""
}
