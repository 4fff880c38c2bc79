package publisher

import "errors"

// Sentinel kinds for publisher errors.
var (
	ErrNoBrokers = errors.New("no kafka brokers configured")
	ErrNoTopic   = errors.New("no kafka topic configured")
)
