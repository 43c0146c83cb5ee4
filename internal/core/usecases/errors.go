package usecases

import "errors"

var (
	// ErrNotFound is returned when an activity does not exist or belongs to
	// another user.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoLocation means neither a device nor a manual location is usable.
	ErrNoLocation = errors.New("no usable location")
)
