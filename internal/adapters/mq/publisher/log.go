package publisher

import (
	"context"
	"encoding/json"

	"github.com/okian/betpool/internal/domain/model"
	"github.com/okian/betpool/pkg/logger"
)

// LogPublisher writes each message as a structured log line. It is the
// default when no broker is configured.
type LogPublisher struct {
	log logger.Logger
}

// NewLogPublisher returns a publisher logging through log.
func NewLogPublisher(log logger.Logger) *LogPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &LogPublisher{log: log}
}

// Publish implements Publisher.
func (p *LogPublisher) Publish(ctx context.Context, m model.Message) error { //nolint:gocritic // hugeParam: matches the worker's by-value contract
	fields := []logger.Field{
		logger.String("message_id", m.ID),
		logger.String("type", m.Type),
		logger.String("key", m.Key),
	}
	if json.Valid(m.Payload) {
		fields = append(fields, logger.Any("payload", json.RawMessage(m.Payload)))
	} else {
		fields = append(fields, logger.String("payload", string(m.Payload)))
	}
	p.log.Info(ctx, "settlement message", fields...)
	return nil
}

// Close implements Publisher.
func (p *LogPublisher) Close() error { return nil }
