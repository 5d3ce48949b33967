// Package apperr defines the typed error taxonomy shared by the session
// engine and its callers.
package apperr

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknown Code = "UNKNOWN"

	// Lookup and access
	CodeNotFound  Code = "NOT_FOUND"
	CodeForbidden Code = "FORBIDDEN"

	// Session lifecycle
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeAlreadyRunning    Code = "ALREADY_RUNNING"
	CodeImmutableSession  Code = "IMMUTABLE_SESSION"
	CodeConflict          Code = "CONFLICT"

	// Conversion
	CodeInvalidState     Code = "INVALID_STATE"
	CodeAlreadyConverted Code = "ALREADY_CONVERTED"
	CodeConversionExists Code = "CONVERSION_EXISTS"

	// Input
	CodeValidation Code = "VALIDATION"

	// Infrastructure
	CodeUnavailable Code = "UNAVAILABLE"
	CodeInternal    Code = "INTERNAL"
)

// Retryable reports whether an operation failing with this code may be
// retried after reloading state.
func (c Code) Retryable() bool {
	return c == CodeConflict
}

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeValidation:
		return codes.InvalidArgument

	case CodeInvalidTransition,
		CodeAlreadyRunning,
		CodeImmutableSession,
		CodeInvalidState,
		CodeConversionExists:
		return codes.FailedPrecondition

	case CodeAlreadyConverted:
		return codes.AlreadyExists

	case CodeConflict:
		return codes.Aborted

	case CodeNotFound:
		return codes.NotFound

	case CodeForbidden:
		return codes.PermissionDenied

	case CodeUnavailable:
		return codes.Unavailable

	default:
		return codes.Internal
	}
}
