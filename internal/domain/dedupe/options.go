// Package dedupe tracks idempotency keys so a retried request is applied at
// most once.
package dedupe

import (
	"time"

	"github.com/okian/betpool/internal/domain/clock"
)

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize sets the maximum number of keys to keep in memory.
// If maxSize <= 0 the deduper is unbounded.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}

// WithTTL sets how long a key is remembered.
func WithTTL(ttl time.Duration) Option {
	return func(d *inMemoryDeduper) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// WithClock sets the time source used for expiry.
func WithClock(c clock.Clock) Option {
	return func(d *inMemoryDeduper) {
		if c != nil {
			d.clock = c
		}
	}
}
