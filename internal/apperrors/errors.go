// Package apperrors defines the error kinds returned by the catalog service.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a service error so the transport layer can pick a response.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindDuplicateName
	KindNotFound
	KindOperationFailed
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDuplicateName:
		return "duplicate_name"
	case KindNotFound:
		return "not_found"
	case KindOperationFailed:
		return "operation_failed"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrValidation      = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrDuplicateName   = &Error{Kind: KindDuplicateName, Message: "duplicate product name"}
	ErrNotFound        = &Error{Kind: KindNotFound, Message: "product not found"}
	ErrOperationFailed = &Error{Kind: KindOperationFailed, Message: "operation failed"}
)

// Error is a classified service error. Err holds the underlying cause, if any.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Validation returns a KindValidation error with a formatted message.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// DuplicateName returns a KindDuplicateName error for name.
func DuplicateName(name string) error {
	return &Error{Kind: KindDuplicateName, Message: fmt.Sprintf("a product named %q already exists", name)}
}

// NotFound returns a KindNotFound error. The message is meant for logs; handlers
// answer not-found with a generic text.
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// OperationFailed wraps cause behind a generic message.
func OperationFailed(message string, cause error) error {
	return &Error{Kind: KindOperationFailed, Message: message, Err: cause}
}

// KindOf returns the kind of err, or KindUnknown if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
