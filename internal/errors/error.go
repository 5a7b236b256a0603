package errors

import "fmt"

// Category represents the type of error.
type Category string

const (
	CategoryConfig    Category = "config"
	CategoryCLI       Category = "cli"
	CategoryInspector Category = "inspector"
)

// PulseError is a structured error with a code, an explanation and a hint.
type PulseError struct {
	// Code is a unique error identifier (e.g., "P101").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *PulseError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *PulseError) Unwrap() error {
	return e.Wrapped
}

// WithDetail adds a detailed explanation to the error.
func (e *PulseError) WithDetail(d string) *PulseError {
	e.Detail = d
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *PulseError) WithSuggestion(s string) *PulseError {
	e.Suggestion = s
	return e
}

// Wrap wraps another error.
func (e *PulseError) Wrap(err error) *PulseError {
	e.Wrapped = err
	return e
}

// New creates a PulseError from a registered error code.
func New(code string) *PulseError {
	template, ok := registry[code]
	if !ok {
		return &PulseError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &PulseError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a PulseError with a formatted message and no code.
func Newf(category Category, format string, args ...any) *PulseError {
	return &PulseError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error under code. PulseErrors pass through.
func FromError(err error, code string) *PulseError {
	if err == nil {
		return nil
	}
	if pe, ok := err.(*PulseError); ok {
		return pe
	}
	return New(code).Wrap(err)
}
