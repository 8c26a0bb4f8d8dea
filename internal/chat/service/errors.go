package service

import "errors"

// Chat engine error taxonomy. All of these are recoverable at the caller
// boundary; the API layer maps them onto HTTP error codes.
var (
	// ErrRoomClosed rejects any mutation of a terminal room.
	ErrRoomClosed = errors.New("room is closed")

	// ErrInvalidTransition rejects a status change the lifecycle table does
	// not permit.
	ErrInvalidTransition = errors.New("invalid room status transition")

	// ErrNoAgentAvailable means no eligible candidate existed; the room stays
	// waiting. Callers treat this as an expected outcome, not a failure.
	ErrNoAgentAvailable = errors.New("no agent available")

	// ErrAgentAtCapacity guards assignment against an agent already at their
	// concurrency ceiling. Unreachable through the assigner's own filtering.
	ErrAgentAtCapacity = errors.New("agent at capacity")

	// ErrRoomNotFound / ErrAgentNotFound / ErrRuleNotFound cover unknown ids.
	ErrRoomNotFound  = errors.New("room not found")
	ErrAgentNotFound = errors.New("agent not found")
	ErrRuleNotFound  = errors.New("chatbot rule not found")

	// ErrForbidden is returned when a role-gated operation is attempted by
	// the wrong party.
	ErrForbidden = errors.New("operation not permitted for this role")
)
