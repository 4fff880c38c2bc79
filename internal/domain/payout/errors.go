package payout

import "errors"

// Sentinel kinds for payout errors.
var (
	ErrSnapshotMismatch = errors.New("report does not match snapshot")
)
