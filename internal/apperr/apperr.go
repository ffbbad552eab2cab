// Package apperr provides coded domain errors shared by the services.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error into a caller-visible outcome.
type Kind int

const (
	// KindInternal is an unexpected failure (storage, encoding, ...).
	KindInternal Kind = iota
	// KindNotFound indicates a missing project, task, invitation or user.
	KindNotFound
	// KindForbidden indicates the authorization policy denied the action.
	KindForbidden
	// KindConflict indicates a duplicate or already-present record.
	KindConflict
	// KindExpired indicates an invitation past its expiry.
	KindExpired
	// KindInvalidState indicates an illegal transition for the current state.
	KindInvalidState
	// KindValidation indicates malformed input.
	KindValidation
	// KindUnauthorized indicates a missing or invalid identity.
	KindUnauthorized
)

// String returns the kind label.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NOT_FOUND"
	case KindForbidden:
		return "FORBIDDEN"
	case KindConflict:
		return "CONFLICT"
	case KindExpired:
		return "EXPIRED"
	case KindInvalidState:
		return "INVALID_STATE"
	case KindValidation:
		return "VALIDATION_FAILED"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	default:
		return "INTERNAL"
	}
}

// Code is a machine-readable error code, finer grained than Kind.
type Code string

const (
	CodeProjectNotFound    Code = "PROJECT_NOT_FOUND"
	CodeTaskNotFound       Code = "TASK_NOT_FOUND"
	CodeInvitationNotFound Code = "INVITATION_NOT_FOUND"
	CodeUserNotFound       Code = "USER_NOT_FOUND"
	CodeMemberNotFound     Code = "MEMBER_NOT_FOUND"

	CodeForbidden Code = "FORBIDDEN"

	CodeAlreadyMember     Code = "ALREADY_MEMBER"
	CodeInvitationPending Code = "INVITATION_PENDING"
	CodeEmailTaken        Code = "EMAIL_TAKEN"

	CodeInvitationExpired Code = "INVITATION_EXPIRED"

	CodeInvitationResolved Code = "INVITATION_RESOLVED"
	CodeOwnerImmutable     Code = "OWNER_IMMUTABLE"
	CodeAccountInactive    Code = "ACCOUNT_INACTIVE"

	CodeValidation Code = "VALIDATION_FAILED"

	CodeUnauthorized   Code = "UNAUTHORIZED"
	CodeBadCredentials Code = "BAD_CREDENTIALS"
	CodeInternal       Code = "INTERNAL"
)

// Error is the domain error type.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind. A target with a
// code also has to match the code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// New creates an error of the given kind and code.
func New(kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap creates an error of the given kind around a cause.
func Wrap(kind Kind, code Code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Cause: cause}
}

// NotFound returns a KindNotFound error.
func NotFound(code Code, message string) *Error {
	return New(KindNotFound, code, message)
}

// Forbidden returns a KindForbidden error.
func Forbidden(message string) *Error {
	return New(KindForbidden, CodeForbidden, message)
}

// Conflict returns a KindConflict error.
func Conflict(code Code, message string) *Error {
	return New(KindConflict, code, message)
}

// Expired returns a KindExpired error.
func Expired(code Code, message string) *Error {
	return New(KindExpired, code, message)
}

// InvalidState returns a KindInvalidState error.
func InvalidState(code Code, message string) *Error {
	return New(KindInvalidState, code, message)
}

// Validation returns a KindValidation error.
func Validation(message string) *Error {
	return New(KindValidation, CodeValidation, message)
}

// Validationf formats a KindValidation error.
func Validationf(format string, args ...any) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

// Sentinels for errors.Is checks by kind.
var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrExpired      = &Error{Kind: KindExpired}
	ErrInvalidState = &Error{Kind: KindInvalidState}
	ErrValidation   = &Error{Kind: KindValidation}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
)

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	return CodeInternal
}

// MessageOf returns a caller-facing message for err. Internal errors are
// masked.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "internal error"
}
