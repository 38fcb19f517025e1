package model

import "errors"

// Sentinel kinds for workflow errors. Every kind is terminal for the
// requested operation; callers correct and retry, the core never does.
var (
	// ErrInvalidTransition marks a status change outside the transition table.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidState marks an operation whose status precondition failed,
	// e.g. evaluating before the bidding is CLOSED.
	ErrInvalidState = errors.New("invalid bidding state")

	// ErrForbidden marks an authorization gate denial.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation marks malformed input, e.g. an out-of-range score.
	ErrValidation = errors.New("validation failed")

	// ErrAlreadyDecided marks a repeated winner selection or contract draft.
	ErrAlreadyDecided = errors.New("already decided")

	// ErrNotFound marks a missing bidding, participation, or evaluation.
	ErrNotFound = errors.New("not found")

	// ErrTimeout marks a storage call that exceeded the caller-supplied bound.
	ErrTimeout = errors.New("operation timed out")
)
