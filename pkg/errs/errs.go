// Package errs defines the error taxonomy shared by all Planora packages.
//
// Every failure surfaced to a caller carries a Kind. Kinds are deterministic
// outcomes of current state (never retried internally) except Unavailable,
// which marks a transient storage fault and is the only kind a caller may
// reasonably retry.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers and for HTTP status mapping.
type Kind int

const (
	// Internal is an unclassified server-side failure.
	Internal Kind = iota
	// Invalid marks malformed input caught before any authorization check.
	Invalid
	// Unauthorized means no identity, or an identity with no membership in
	// the target scope. Used where revealing more would leak scope membership.
	Unauthorized
	// Forbidden means the identity is known and scoped but a rank or
	// ownership rule blocks the action.
	Forbidden
	// NotFound means the referenced entity does not exist or does not nest
	// under the claimed parent.
	NotFound
	// Conflict marks a uniqueness violation such as a duplicate membership.
	Conflict
	// Unavailable marks a transient storage fault.
	Unavailable
)

func (k Kind) String() string {
	switch k {
	case Invalid:
		return "invalid"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Unavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is a classified error. It wraps an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes errors.Is match two *Error values by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

// E creates a classified error.
func E(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Ef creates a classified error with a formatted message.
func Ef(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the Kind of err, or Internal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool { return IsKind(err, NotFound) }

// IsConflict reports whether err is a Conflict error.
func IsConflict(err error) bool { return IsKind(err, Conflict) }

// IsForbidden reports whether err is a Forbidden error.
func IsForbidden(err error) bool { return IsKind(err, Forbidden) }

// IsUnauthorized reports whether err is an Unauthorized error.
func IsUnauthorized(err error) bool { return IsKind(err, Unauthorized) }

// IsInvalid reports whether err is an Invalid error.
func IsInvalid(err error) bool { return IsKind(err, Invalid) }

// IsUnavailable reports whether err is an Unavailable error.
func IsUnavailable(err error) bool { return IsKind(err, Unavailable) }
