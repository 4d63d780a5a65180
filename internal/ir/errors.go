package ir

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrorCode categorizes recoverable IR errors.
type ErrorCode string

const (
	// ErrCodeDuplicateIdentifier indicates a UUID is already live in the
	// Context.
	ErrCodeDuplicateIdentifier ErrorCode = "DUPLICATE_IDENTIFIER"

	// ErrCodeUnresolvedReference indicates a wire message names a UUID that
	// does not resolve to an entity of the expected kind.
	ErrCodeUnresolvedReference ErrorCode = "UNRESOLVED_REFERENCE"

	// ErrCodeInvalidMessage indicates a wire message is structurally
	// unusable.
	ErrCodeInvalidMessage ErrorCode = "INVALID_MESSAGE"

	// ErrCodeForeignEntity indicates an entity that does not belong to the
	// receiving module.
	ErrCodeForeignEntity ErrorCode = "FOREIGN_ENTITY"
)

// Error is a recoverable failure reported by an IR operation.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// ID is the identifier involved, if any.
	ID uuid.UUID
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ID != uuid.Nil {
		return fmt.Sprintf("%s: %s (uuid=%s)", e.Code, e.Message, e.ID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewDuplicateIdentifierError creates an Error for a UUID that is already
// registered to a live entity.
func NewDuplicateIdentifierError(id uuid.UUID) *Error {
	return &Error{
		Code:    ErrCodeDuplicateIdentifier,
		Message: "identifier already in use",
		ID:      id,
	}
}

func newUnresolvedError(id uuid.UUID, want string) *Error {
	return &Error{
		Code:    ErrCodeUnresolvedReference,
		Message: fmt.Sprintf("reference does not resolve to a %s", want),
		ID:      id,
	}
}

func newInvalidMessageError(format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeInvalidMessage,
		Message: fmt.Sprintf(format, args...),
	}
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsDuplicateIdentifier returns true if err reports a UUID collision.
// Uses errors.As to handle wrapped errors.
func IsDuplicateIdentifier(err error) bool {
	return hasCode(err, ErrCodeDuplicateIdentifier)
}

// IsUnresolvedReference returns true if err reports a dangling reference in
// a wire message.
func IsUnresolvedReference(err error) bool {
	return hasCode(err, ErrCodeUnresolvedReference)
}

// IsInvalidMessage returns true if err reports an unusable wire message.
func IsInvalidMessage(err error) bool {
	return hasCode(err, ErrCodeInvalidMessage)
}

// IsForeignEntity returns true if err reports an entity owned by another
// module.
func IsForeignEntity(err error) bool {
	return hasCode(err, ErrCodeForeignEntity)
}

// InvariantViolation is the panic value raised when internal bookkeeping
// is found inconsistent. It signals a programming error and is never
// returned as an ordinary error.
type InvariantViolation struct {
	Message string
}

// Error implements the error interface.
func (e *InvariantViolation) Error() string {
	return "ir: invariant violation: " + e.Message
}

func invariantf(format string, args ...any) {
	panic(&InvariantViolation{Message: fmt.Sprintf(format, args...)})
}
