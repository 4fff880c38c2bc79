// Package worker delivers queued settlement messages to a publisher.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/betpool/internal/domain/model"
	"github.com/okian/betpool/pkg/logger"
	"github.com/okian/betpool/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount    = 1
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Message abstracts what workers read off the queue.
type Message = model.Message

// Publisher delivers one message downstream.
type Publisher interface {
	Publish(ctx context.Context, m Message) error
}

// Queue defines how workers receive messages.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Message
}

// Worker delivers messages using the provided interfaces.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue drains.
	Run(ctx context.Context)

	// Shutdown stops the worker without waiting for the queue to drain.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for delivering messages.
type InMemoryWorker struct {
	queue     Queue
	publisher Publisher
	name      string

	// Shared with the pool for active/idle gauges.
	active *atomic.Int64

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, publisher Publisher, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		publisher: publisher,
		name:      "worker",
		active:    new(atomic.Int64),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Nop(),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	messages := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case m, ok := <-messages:
			if !ok {
				return
			}
			if err := w.processMessage(ctx, m); err != nil {
				w.logger.Error(ctx, "error delivering message", logger.Error(err))
			}
		}
	}
}

// Done is closed once Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processMessage delivers a single message. Failed deliveries are counted and
// logged; the message is not retried.
func (w *InMemoryWorker) processMessage(ctx context.Context, m Message) error { //nolint:gocritic // hugeParam: Message must be passed by value for channel semantics
	w.active.Add(1)
	start := time.Now()
	defer func() {
		w.active.Add(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.publisher.Publish(ctx, m); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordPublishError(m.Type)
		metrics.RecordErrorByComponent("worker", "publish_error")
		w.logger.Error(ctx, "publish failed",
			logger.String("message_id", m.ID),
			logger.String("type", m.Type),
			logger.String("key", m.Key),
			logger.Error(err),
		)
		return fmt.Errorf("failed to publish %s %s: %w", m.Type, m.ID, err)
	}

	metrics.RecordMessagePublished(m.Type)
	w.logger.Debug(ctx, "message published",
		logger.String("message_id", m.ID),
		logger.String("type", m.Type))
	return nil
}

// Pool manages multiple workers reading one queue. With more than one worker
// messages for the same key may be delivered out of order.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	publisher Publisher
	active    atomic.Int64
	stopped   atomic.Bool

	// Shutdown control
	shutdown chan struct{}

	// Logging
	logger logger.Logger
}

// NewPool creates a new worker pool. A workerCount below 1 falls back to one
// worker.
func NewPool(workerCount int, queue Queue, publisher Publisher, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	pool := &Pool{
		workers:   make([]*InMemoryWorker, workerCount),
		queue:     queue,
		publisher: publisher,
		shutdown:  make(chan struct{}),
		logger:    logger.Nop(),
	}

	probe := &InMemoryWorker{logger: pool.logger}
	for _, opt := range opts {
		opt(probe)
	}
	pool.logger = probe.logger.Named("worker-pool")

	for i := 0; i < workerCount; i++ {
		w := NewInMemoryWorker(
			queue,
			publisher,
			append(append([]Option(nil), opts...), WithName("worker-"+strconv.Itoa(i)))...,
		)
		w.active = &pool.active
		pool.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerIdleCount(workerCount)

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Active returns the number of workers currently delivering.
func (p *Pool) Active() int { return int(p.active.Load()) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.startMetricsUpdater(ctx)
}

// startMetricsUpdater refreshes the active/idle gauges.
func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			active := p.Active()
			metrics.UpdateWorkerActiveCount(active)
			metrics.UpdateWorkerIdleCount(len(p.workers) - active)
		}
	}
}

// Stop stops all workers without draining the queue.
func (p *Pool) Stop() {
	if !p.stopped.CompareAndSwap(false, true) {
		return
	}
	close(p.shutdown)

	for _, w := range p.workers {
		ctx, cancel := context.WithTimeout(context.Background(), workerShutdownTimeout)
		_ = w.Shutdown(ctx)
		cancel()
	}
}

// Shutdown closes the queue and lets the workers drain it, bounded by ctx.
// Workers still running at the deadline are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	drainCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var err error
	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-drainCtx.Done():
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			err = fmt.Errorf("%w: %w", ErrDrainTimeout, drainCtx.Err())
		}
	}

	p.Stop()
	return err
}
