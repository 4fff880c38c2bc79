// Package queue holds settlement feed messages between the service and the
// outbox workers.
//
// Enqueue never blocks: the service calls it while holding a question lock,
// so a full queue drops the message and reports false.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/betpool/internal/domain/model"
	"github.com/okian/betpool/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 4096
	defaultBufferSize    = 4096
)

// Message is the payload type flowing through the queue.
type Message = model.Message

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a message to the queue.
	// Returns false if the queue is full or closed and the message was dropped.
	Enqueue(ctx context.Context, m Message) bool

	// Dequeue returns a channel that will receive messages as they become available.
	// The channel will be closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Message

	// Len returns the current number of queued messages.
	Len(ctx context.Context) int

	// Close stops accepting messages. Queued messages can still be dequeued.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	messages   chan Message
	capacity   int
	bufferSize int
	mu         sync.RWMutex
	closed     bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity:   defaultQueueCapacity,
		bufferSize: defaultBufferSize,
	}

	for _, opt := range opts {
		opt(q)
	}
	if q.bufferSize < q.capacity {
		q.bufferSize = q.capacity
	}

	q.messages = make(chan Message, q.bufferSize)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds a message to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, m Message) bool { //nolint:gocritic // hugeParam: Message must be passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordQueueProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	if len(q.messages) >= q.capacity {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "capacity_exceeded")
		return false
	}

	select {
	case q.messages <- m:
		metrics.RecordQueueEnqueue()
		q.updateGauges()
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel that will receive messages as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Message {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			select {
			case m, ok := <-q.messages:
				if !ok {
					return
				}
				select {
				case out <- m:
					metrics.RecordQueueDequeue()
					q.updateGauges()
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued messages.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return q.updateGauges()
}

func (q *InMemoryQueue) updateGauges() int {
	size := len(q.messages)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.messages)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
