package dedupe

import "errors"

// Sentinel kinds for dedupe errors.
var (
	ErrUnknownKey = errors.New("idempotency key not recorded")
)
