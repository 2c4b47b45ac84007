package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can react without parsing messages.
type Kind string

const (
	KindInvalidAmount      Kind = "INVALID_AMOUNT"
	KindInvalidState       Kind = "INVALID_STATE"
	KindInvalidInput       Kind = "INVALID_INPUT"
	KindNotFound           Kind = "NOT_FOUND"
	KindNumberingExhausted Kind = "NUMBERING_EXHAUSTED"
)

// Sentinels for errors.Is checks against any *Error of the same kind.
var (
	ErrInvalidAmount      = &Error{Kind: KindInvalidAmount, Message: "invalid amount"}
	ErrInvalidState       = &Error{Kind: KindInvalidState, Message: "invalid state"}
	ErrInvalidInput       = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "not found"}
	ErrNumberingExhausted = &Error{Kind: KindNumberingExhausted, Message: "numbering exhausted"}
)

// Error is a typed failure returned by the billing core.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind so wrapped errors compare equal to the package sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func InvalidAmount(format string, args ...interface{}) *Error {
	return newf(KindInvalidAmount, format, args...)
}

func InvalidState(format string, args ...interface{}) *Error {
	return newf(KindInvalidState, format, args...)
}

func InvalidInput(format string, args ...interface{}) *Error {
	return newf(KindInvalidInput, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newf(KindNotFound, format, args...)
}

func NumberingExhausted(format string, args ...interface{}) *Error {
	return newf(KindNumberingExhausted, format, args...)
}

// Wrap attaches a cause to a new error of the given kind.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}
