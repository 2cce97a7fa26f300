// Package apperr defines the client's error taxonomy.
//
// Every failure that reaches the UI is classified so the caller can decide
// where it is surfaced: session failures are fatal and shown full page,
// network failures are recovered inside the affected view (or as a global
// alert for cross-cutting actions), subscription failures roll the
// notification toggle back.
package apperr

import (
	"errors"
	"fmt"
)

// Type represents the category of an error.
type Type string

const (
	// TypeSession indicates session bootstrap failed. Fatal, no retry offered.
	TypeSession Type = "session"
	// TypeNetwork indicates an API call failed.
	TypeNetwork Type = "network"
	// TypeSubscription indicates the push subscription registration failed.
	TypeSubscription Type = "subscription"
	// TypeValidation indicates invalid user input.
	TypeValidation Type = "validation"
)

// Error is a classified error with the operation that produced it.
type Error struct {
	Type    Type
	Op      string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		if msg == "" {
			msg = e.Op
		} else {
			msg = e.Op + ": " + msg
		}
	}
	if e.Cause != nil {
		if msg == "" {
			return fmt.Sprintf("%s: %v", e.Type, e.Cause)
		}
		return fmt.Sprintf("%s: %s: %v", e.Type, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, msg)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Session wraps a bootstrap failure.
func Session(op string, cause error) *Error {
	return &Error{Type: TypeSession, Op: op, Cause: cause}
}

// Network wraps an API failure.
func Network(op string, cause error) *Error {
	return &Error{Type: TypeNetwork, Op: op, Cause: cause}
}

// NetworkMessage reports an API failure described by the server's error field.
func NetworkMessage(op, message string) *Error {
	return &Error{Type: TypeNetwork, Op: op, Message: message}
}

// Subscription wraps a push registration failure.
func Subscription(op string, cause error) *Error {
	return &Error{Type: TypeSubscription, Op: op, Cause: cause}
}

// Validation reports invalid user input.
func Validation(message string) *Error {
	return &Error{Type: TypeValidation, Message: message}
}

// TypeOf returns the type of the first classified error in err's chain.
// Unclassified errors report an empty type.
func TypeOf(err error) Type {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ""
}

// Is reports whether err carries the given type anywhere in its chain.
func Is(err error, t Type) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Type == t {
			return true
		}
		err = e.Cause
	}
	return false
}

// IsFatal reports whether err must take down the whole client.
func IsFatal(err error) bool {
	return Is(err, TypeSession)
}
