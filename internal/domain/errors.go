package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest marks caller errors; nothing was written or sent.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable marks a document store transport or server failure.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrProviderError marks a payment provider failure.
	ErrProviderError = errors.New("payment provider error")

	// ErrCancelled marks a call aborted by the caller's context.
	ErrCancelled = errors.New("cancelled")

	// ErrTimeout marks a call aborted by the caller's deadline.
	ErrTimeout = errors.New("timeout")
)

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// Is lets errors.Is match ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a NotFoundError for the given entity and id.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// WrapCollaborator classifies a collaborator failure. Context cancellation and
// deadline errors map to ErrCancelled and ErrTimeout; anything else is wrapped
// with fallback. The original error stays reachable through errors.Is/As.
func WrapCollaborator(op string, fallback, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w: %w", op, ErrCancelled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, fallback, err)
	}
}
