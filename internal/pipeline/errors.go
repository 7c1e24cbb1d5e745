package pipeline

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindInsufficientData Kind = "INSUFFICIENT_DATA"
	KindInvalidSeries    Kind = "INVALID_SERIES"
	KindInvalidConfig    Kind = "INVALID_CONFIG"
)

// Error is a structured validation failure. No decision is produced
// alongside it.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInsufficientData = &Error{Kind: KindInsufficientData}
	ErrInvalidSeries    = &Error{Kind: KindInvalidSeries}
	ErrInvalidConfig    = &Error{Kind: KindInvalidConfig}
)

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of a pipeline error, or "" for anything else.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
