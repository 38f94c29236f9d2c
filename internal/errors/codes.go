// Package errors provides structured error handling with machine-readable codes.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Identity errors
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeUserEmptyEmail  Code = "USER_EMPTY_EMAIL"
	CodeUserEmptyName   Code = "USER_EMPTY_NAME"

	// Circle errors
	CodeCircleNameEmpty     Code = "CIRCLE_NAME_EMPTY"
	CodeCircleEmptyOwnerID  Code = "CIRCLE_EMPTY_OWNER_ID"
	CodeCircleInvalidTarget Code = "CIRCLE_INVALID_TARGET"

	// Session errors
	CodeSessionEmptyCircleID Code = "SESSION_EMPTY_CIRCLE_ID"
	CodeSessionInvalidTarget Code = "SESSION_INVALID_TARGET"
	CodeSessionClosed        Code = "SESSION_CLOSED"

	// Increment errors
	CodeInvalidDelta        Code = "INVALID_DELTA"
	CodeIncrementInFlight   Code = "INCREMENT_IN_FLIGHT"
	CodeNoActiveSession     Code = "NO_ACTIVE_SESSION"

	// Invite errors
	CodeInviteEmptyCircleID Code = "INVITE_EMPTY_CIRCLE_ID"
	CodeInviteInvalidToken  Code = "INVITE_INVALID_TOKEN"
	CodeInviteTokenExpired  Code = "INVITE_TOKEN_EXPIRED"

	// Reflection errors
	CodeReflectionEmptyText         Code = "REFLECTION_EMPTY_TEXT"
	CodeReflectionInvalidVisibility Code = "REFLECTION_INVALID_VISIBILITY"

	// Storage/transport errors
	CodeNotFound  Code = "NOT_FOUND"
	CodeTransient Code = "TRANSIENT"
)

// WireString maps a code to the short error string carried in the JSON
// envelope. Wire strings are coarser than codes: consumed and expired invite
// tokens both surface as invalid_token.
func (c Code) WireString() string {
	switch c {
	case CodeUnauthenticated:
		return "unauthenticated"
	case CodeUnauthorized:
		return "unauthorized"
	case CodeNotFound:
		return "not_found"
	case CodeInviteInvalidToken, CodeInviteTokenExpired:
		return "invalid_token"
	case CodeInvalidDelta:
		return "invalid_delta"
	case CodeSessionInvalidTarget, CodeCircleInvalidTarget:
		return "invalid_target"
	case CodeSessionClosed:
		return "session_closed"
	case CodeTransient:
		return "transient"
	case CodeUserEmptyEmail,
		CodeUserEmptyName,
		CodeCircleNameEmpty,
		CodeCircleEmptyOwnerID,
		CodeSessionEmptyCircleID,
		CodeInviteEmptyCircleID,
		CodeReflectionEmptyText,
		CodeReflectionInvalidVisibility:
		return "invalid_argument"
	default:
		return "internal"
	}
}

// CodeFromWireString maps a wire error string back to a code. Unknown strings
// map to CodeUnknown.
func CodeFromWireString(s string) Code {
	switch s {
	case "unauthenticated":
		return CodeUnauthenticated
	case "unauthorized":
		return CodeUnauthorized
	case "not_found":
		return CodeNotFound
	case "invalid_token":
		return CodeInviteInvalidToken
	case "invalid_delta":
		return CodeInvalidDelta
	case "invalid_target":
		return CodeSessionInvalidTarget
	case "session_closed":
		return CodeSessionClosed
	case "transient":
		return CodeTransient
	default:
		return CodeUnknown
	}
}

// HTTPStatus maps a code to an HTTP response status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeSessionClosed:
		return http.StatusConflict
	case CodeTransient:
		return http.StatusServiceUnavailable
	case CodeUserEmptyEmail,
		CodeUserEmptyName,
		CodeCircleNameEmpty,
		CodeCircleEmptyOwnerID,
		CodeCircleInvalidTarget,
		CodeSessionEmptyCircleID,
		CodeSessionInvalidTarget,
		CodeInvalidDelta,
		CodeInviteEmptyCircleID,
		CodeInviteInvalidToken,
		CodeInviteTokenExpired,
		CodeReflectionEmptyText,
		CodeReflectionInvalidVisibility:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
