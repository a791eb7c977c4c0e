package store

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned when a referenced event, user or document is absent.
	ErrNotFound = errors.New("not found")

	// ErrTransient is returned when Redis is unreachable or a command fails.
	ErrTransient = errors.New("store unavailable")

	// ErrValidation is returned when a record is missing a required field or is malformed.
	ErrValidation = errors.New("validation failed")

	// ErrPrecondition is returned when a caller-side precondition does not hold,
	// e.g. appending to a chat without an active subscription.
	ErrPrecondition = errors.New("precondition failed")

	// ErrForbidden is returned when a user tries to modify an event they did not create.
	ErrForbidden = errors.New("forbidden")
)

// IsNotFound reports whether err means the requested document does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, redis.Nil)
}

// IsTransient reports whether err comes from an unavailable store.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// wrapRedis classifies a go-redis error: redis.Nil becomes ErrNotFound,
// anything else ErrTransient.
func wrapRedis(op string, err error) error {
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
}

// invalid wraps a record validation error with ErrValidation.
func invalid(what string, err error) error {
	return fmt.Errorf("invalid %s: %w: %w", what, ErrValidation, err)
}
