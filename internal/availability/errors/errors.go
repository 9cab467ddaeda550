package errors

import "errors"

var (
	ErrConflict = errors.New("dates are not available")

	ErrHoldNotFound = errors.New("hold not found")

	ErrHoldExpired = errors.New("hold expired")

	ErrHoldAlreadyConfirmed = errors.New("hold already confirmed with a different booking")

	// ErrActorRetired is returned when a command reaches an actor that has
	// already shut down. The command had no effect.
	ErrActorRetired = errors.New("unit coordinator retired")

	ErrRouterClosed = errors.New("unit router closed")

	ErrUnavailable = errors.New("unit coordinator unavailable")

	ErrPersistence = errors.New("failed to persist hold")
)
