package driver

import "errors"

// Domain-specific errors for driver resolution.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnknownClass is returned when no factory is registered for a
	// device-class identifier.
	ErrUnknownClass = errors.New("driver: unknown device class")

	// ErrDuplicateClass is returned when a class identifier is registered twice.
	ErrDuplicateClass = errors.New("driver: device class already registered")

	// ErrNilFactory is returned when a nil factory is registered.
	ErrNilFactory = errors.New("driver: factory cannot be nil")
)
