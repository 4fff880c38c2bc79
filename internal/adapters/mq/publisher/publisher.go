// Package publisher delivers settlement feed messages to their destination.
package publisher

import (
	"context"

	"github.com/okian/betpool/internal/domain/model"
)

// Publisher delivers one message. Implementations must be safe for
// concurrent use by the worker pool.
type Publisher interface {
	Publish(ctx context.Context, m model.Message) error
	Close() error
}

// Discard drops every message. It backs the "none" publisher setting.
type Discard struct{}

// Publish implements Publisher.
func (Discard) Publish(context.Context, model.Message) error { return nil }

// Close implements Publisher.
func (Discard) Close() error { return nil }
