// Package errors provides structured error handling for the room protocol.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Input validation errors
	CodeNicknameEmpty  Code = "NICKNAME_EMPTY"
	CodeSelectionEmpty Code = "SELECTION_EMPTY"
	CodeTargetIsHost   Code = "TARGET_IS_HOST"

	// Lookup errors
	CodeRoomNotFound   Code = "ROOM_NOT_FOUND"
	CodeTargetNotFound Code = "TARGET_NOT_FOUND"

	// Authority errors
	CodeHostSecretMismatch Code = "HOST_SECRET_MISMATCH"
	CodeHostRequired       Code = "HOST_REQUIRED"
	CodeHostUnkickable     Code = "HOST_UNKICKABLE"

	// Join conflicts
	CodeNicknameTaken Code = "NICKNAME_TAKEN"
	CodeRoomLocked    Code = "ROOM_LOCKED"

	// Throttling
	CodeRollRateLimited Code = "ROLL_RATE_LIMITED"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeNicknameEmpty,
		CodeSelectionEmpty,
		CodeTargetIsHost:
		return codes.InvalidArgument

	// NotFound - unknown room or target
	case CodeRoomNotFound,
		CodeTargetNotFound:
		return codes.NotFound

	// Unauthenticated - host secret mismatch
	case CodeHostSecretMismatch:
		return codes.Unauthenticated

	// PermissionDenied - insufficient role
	case CodeHostRequired,
		CodeHostUnkickable:
		return codes.PermissionDenied

	// AlreadyExists - nickname collision
	case CodeNicknameTaken:
		return codes.AlreadyExists

	// FailedPrecondition - room refuses new joins
	case CodeRoomLocked:
		return codes.FailedPrecondition

	// ResourceExhausted - roll cooldown not elapsed
	case CodeRollRateLimited:
		return codes.ResourceExhausted

	default:
		return codes.Unknown
	}
}
