package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a referenced session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrGroupNotFound is returned when a referenced group does not exist.
	ErrGroupNotFound = errors.New("group not found")
	// ErrQuestionNotFound indicates no question matched a lookup; the
	// sequencer treats it as exhaustion.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidTransition rejects an illegal session status change.
	ErrInvalidTransition = errors.New("invalid session status transition")
	// ErrInvalidCategory rejects an unknown question category.
	ErrInvalidCategory = errors.New("invalid question category")
	// ErrAdvanceInFlight is returned when two start/next calls race on the
	// same session; the loser is rejected instead of double-serving.
	ErrAdvanceInFlight = errors.New("question advance already in flight")
	// ErrNoLiveState is returned when an operation requires a started game.
	ErrNoLiveState = errors.New("session has no live game state")
)
