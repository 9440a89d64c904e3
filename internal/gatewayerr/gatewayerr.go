// Package gatewayerr defines the gateway's error taxonomy: a fixed set of
// named Kinds carried on a single *Error type, in the code/message/cause
// shape documented by StricklySoft-core's pkg/errors (New/Wrap/AsError/
// Is-checks), adapted from that package's open-ended category codes to a
// closed set of nine Kinds.
package gatewayerr

import (
	"errors"
	"fmt"
)

// Kind enumerates the error taxonomy. There are exactly nine; handlers and
// the dispatcher switch on Kind, never on string matching.
type Kind string

const (
	SafetyCheckFailed    Kind = "safety_check_failed"
	SessionLimitExceeded Kind = "session_limit_exceeded"
	UnknownSession       Kind = "unknown_session"
	MissingSessionID     Kind = "missing_session_id"
	InvalidIdentifier    Kind = "invalid_identifier"
	InvalidParameters    Kind = "invalid_parameters"
	DatabaseError        Kind = "database_error"
	NotImplemented       Kind = "not_implemented"
	Internal             Kind = "internal"
)

// Error is the gateway's single error type. Message is safe to surface to
// a caller; Cause is for logging; Details carries structured context that
// the dispatcher's error envelope passes on to the caller. Neither Cause
// nor Details is required to be non-nil.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Details map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a bare Error with no cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds a bare Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind/message to an existing error, preserving it as Cause.
func Wrap(cause error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(cause error, kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithDetails attaches structured context (e.g. the failing operation
// index for a P7 batch failure) and returns the same *Error for chaining.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// AsError extracts the first *Error in err's chain, following the same
// contract as errors.As.
func AsError(err error) (*Error, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// GetKind returns the Kind of the first *Error in err's chain, or ""
// if err does not contain one.
func GetKind(err error) Kind {
	if ge, ok := AsError(err); ok {
		return ge.Kind
	}
	return ""
}

// HasKind reports whether err's chain contains a *Error of kind.
func HasKind(err error, kind Kind) bool {
	return GetKind(err) == kind
}

func IsSafetyCheckFailed(err error) bool     { return HasKind(err, SafetyCheckFailed) }
func IsSessionLimitExceeded(err error) bool  { return HasKind(err, SessionLimitExceeded) }
func IsUnknownSession(err error) bool        { return HasKind(err, UnknownSession) }
func IsMissingSessionID(err error) bool      { return HasKind(err, MissingSessionID) }
func IsInvalidIdentifier(err error) bool     { return HasKind(err, InvalidIdentifier) }
func IsInvalidParameters(err error) bool     { return HasKind(err, InvalidParameters) }
func IsDatabaseError(err error) bool         { return HasKind(err, DatabaseError) }
func IsNotImplemented(err error) bool        { return HasKind(err, NotImplemented) }
func IsInternal(err error) bool              { return HasKind(err, Internal) }
