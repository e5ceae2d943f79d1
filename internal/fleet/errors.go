package fleet

import "errors"

// Sentinel errors for configuration handling.
//
// A parse failure and a structurally unusable document are distinct kinds so
// callers can report them separately:
//
//	if errors.Is(err, fleet.ErrInvalidConfig) {
//	    // Payload was not valid JSON
//	}
var (
	// ErrInvalidConfig indicates the configuration payload could not be parsed.
	// The previous fleet state is left untouched.
	ErrInvalidConfig = errors.New("fleet: invalid configuration payload")

	// ErrMalformedDevice indicates a device entry is structurally unusable,
	// for example a non-string class or subscribe value.
	ErrMalformedDevice = errors.New("fleet: malformed device entry")
)
