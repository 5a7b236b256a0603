package pulse

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeMismatch is returned by SetAny when the value does not match
	// the signal's type parameter.
	ErrTypeMismatch = errors.New("pulse: signal type mismatch")

	// ErrNilSignal is returned by SetAny on a nil signal.
	ErrNilSignal = errors.New("pulse: nil signal")

	// ErrPayloadType is reported when a typed topic handler receives a
	// payload of another type.
	ErrPayloadType = errors.New("pulse: unexpected payload type")
)

// HandlerError describes a bus handler that failed during dispatch, either by
// returning an error or by panicking. The bus logs it and keeps dispatching.
type HandlerError struct {
	Event string
	Index int // position of the handler in the dispatch snapshot
	Err   error
	Panic any
	Stack []byte
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("pulse: handler %d for %q panicked: %v", e.Index, e.Event, e.Panic)
	}
	return fmt.Sprintf("pulse: handler %d for %q: %v", e.Index, e.Event, e.Err)
}

// Unwrap returns the error returned by the handler, if any.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// Kind returns "panic" or "error", used as a metrics label.
func (e *HandlerError) Kind() string {
	if e.Panic != nil {
		return "panic"
	}
	return "error"
}

// ActionPanicError is the failure recorded when an async effect action panics.
type ActionPanicError struct {
	Event string
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *ActionPanicError) Error() string {
	return fmt.Sprintf("pulse: action for %q panicked: %v", e.Event, e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *ActionPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
