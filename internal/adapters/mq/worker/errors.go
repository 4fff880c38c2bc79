package worker

import "errors"

// Sentinel kinds for worker errors.
var (
	ErrDrainTimeout = errors.New("outbox drain timed out")
)
