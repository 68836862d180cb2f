// Package apperr defines the errors services return to handlers. Every error
// crossing a service boundary carries a Kind, which decides the class of HTTP
// response, and a stable Code clients can switch on.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindStoreFailure Kind = iota
	KindUnauthenticated
	KindInvalid
	KindNotFound
	KindConflict
	KindQuotaExceeded
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindInvalid:
		return "invalid"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindForbidden:
		return "forbidden"
	default:
		return "store_failure"
	}
}

// Stable error codes.
const (
	CodeUnauthenticated        = "unauthenticated"
	CodeForbidden              = "forbidden"
	CodeInvalidRequest         = "invalid_request"
	CodeMissingFields          = "missing_fields"
	CodeInvalidAction          = "invalid_action"
	CodeUserNotFound           = "user_not_found"
	CodeItemNotFound           = "item_not_found"
	CodeCategoryNotFound       = "category_not_found"
	CodeSuggestionNotFound     = "suggestion_not_found"
	CodeNoSuchVote             = "no_such_vote"
	CodeAlreadyVoted           = "already_voted"
	CodeAlreadyVotedInCategory = "already_voted_in_category"
	CodeCategoryMismatch       = "category_mismatch"
	CodeAlreadyProcessed       = "already_processed"
	CodeQuotaExceeded          = "quota_exceeded"
	CodeStoreFailure           = "store_failure"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	// Details is rendered next to the message, e.g. current quota usage.
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap attaches cause to a new Error without exposing it in Message.
func Wrap(cause error, kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: cause}
}

// WithDetail returns e with key set in Details.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func Unauthenticated() *Error {
	return New(KindUnauthenticated, CodeUnauthenticated, "login required")
}

// Store wraps an unexpected persistence failure.
func Store(cause error) *Error {
	return Wrap(cause, KindStoreFailure, CodeStoreFailure, "a storage error occurred, try again later")
}

// As extracts the *Error from err's chain. Errors that are not *Error are
// reported as store failures.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Store(err)
}

func KindOf(err error) Kind { return As(err).Kind }

func CodeOf(err error) string { return As(err).Code }

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
