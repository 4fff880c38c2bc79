package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/okian/betpool/internal/domain/model"
	"github.com/okian/betpool/pkg/logger"
	"github.com/okian/betpool/pkg/metrics"
)

// emit queues a settlement message for delivery. It never blocks and never
// fails the caller: a full or stopped outbox drops the message.
func (s *Service) emit(ctx context.Context, typ, key string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error(ctx, "encode outbox message",
			logger.String("type", typ),
			logger.String("key", key),
			logger.Error(err),
		)
		metrics.RecordErrorByComponent("outbox", "encode")
		return
	}

	m := model.Message{
		ID:      uuid.NewString(),
		Type:    typ,
		Key:     key,
		Payload: body,
		At:      s.clock.Now(),
	}

	s.mu.RLock()
	outbox := s.outbox
	s.mu.RUnlock()

	if outbox == nil {
		s.logger.Debug(ctx, "outbox not started, message dropped",
			logger.String("type", typ),
			logger.String("key", key),
		)
		return
	}
	if !outbox.Enqueue(ctx, m) {
		s.logger.Warn(ctx, "outbox full, message dropped",
			logger.String("type", typ),
			logger.String("key", key),
			logger.String("message_id", m.ID),
		)
		metrics.RecordErrorByComponent("outbox", "dropped")
	}
}
