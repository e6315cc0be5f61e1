package booking

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindConflict
	KindUnauthorized
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindPersistence:
		return "persistence"
	}
	return "unknown"
}

// Error is the error type every booking operation returns. Callers branch on
// Kind (or errors.Is against the sentinels below); Msg is safe to show to
// the client.
type Error struct {
	Kind      Kind
	Msg       string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg == "" {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	if e.Err != nil && e.Kind == KindPersistence {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind whose message is empty (a kind
// sentinel) or equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrUnauthorized = &Error{Kind: KindUnauthorized, Msg: "unauthorized"}
	ErrPersistence  = &Error{Kind: KindPersistence}

	ErrSlotTaken          = &Error{Kind: KindConflict, Msg: "time slot not available: conflicts with an existing appointment, choose another slot"}
	ErrAlreadyCancelled   = &Error{Kind: KindValidation, Msg: "appointment already cancelled"}
	ErrCancellationWindow = &Error{Kind: KindValidation, Msg: "cannot cancel within the cancellation window"}
	ErrInvalidTransition  = &Error{Kind: KindValidation, Msg: "invalid status transition"}
)

func validationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func notFound(what string) *Error {
	return &Error{Kind: KindNotFound, Msg: what + " not found"}
}

// persistence wraps a storage failure unless it already carries a kind.
func persistence(op string, err error) error {
	var be *Error
	if errors.As(err, &be) {
		return err
	}
	return &Error{Kind: KindPersistence, Msg: op, Err: err}
}

// KindOf returns the kind of err, or 0 when err is not a booking error.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return 0
}

func IsRetryable(err error) bool {
	var be *Error
	return errors.As(err, &be) && be.Retryable
}
