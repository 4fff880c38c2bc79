package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/mock"

	"github.com/okian/betpool/internal/adapters/mq/queue"
	"github.com/okian/betpool/internal/adapters/mq/worker"
	"github.com/okian/betpool/internal/domain/model"
)

type mockPublisher struct {
	mock.Mock
	mu   sync.Mutex
	seen []string
}

func (m *mockPublisher) Publish(ctx context.Context, msg worker.Message) error {
	args := m.Called(ctx, msg)
	if args.Error(0) == nil {
		m.mu.Lock()
		m.seen = append(m.seen, msg.ID)
		m.mu.Unlock()
	}
	return args.Error(0)
}

func (m *mockPublisher) published() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.seen...)
}

func message(id, typ string) worker.Message {
	return worker.Message{ID: id, Type: typ, Key: "q1", Payload: []byte(`{}`), At: time.Now()}
}

func waitDone(w *worker.InMemoryWorker, d time.Duration) bool {
	select {
	case <-w.Done():
		return true
	case <-time.After(d):
		return false
	}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker draining a queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		pub := &mockPublisher{}
		ctx := context.Background()

		convey.Convey("When messages are enqueued and the queue closes", func() {
			pub.On("Publish", mock.Anything, mock.Anything).Return(nil)
			w := worker.NewInMemoryWorker(q, pub, worker.WithName("test"))
			go w.Run(ctx)

			for i := 0; i < 5; i++ {
				convey.So(q.Enqueue(ctx, message(fmt.Sprintf("m%d", i), model.MessageBetPlaced)), convey.ShouldBeTrue)
			}
			convey.So(q.Close(), convey.ShouldBeNil)

			convey.Convey("Then it publishes them in order and stops", func() {
				convey.So(waitDone(w, 2*time.Second), convey.ShouldBeTrue)
				convey.So(pub.published(), convey.ShouldResemble, []string{"m0", "m1", "m2", "m3", "m4"})
				convey.So(pub.AssertNumberOfCalls(t, "Publish", 5), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When one publish fails", func() {
			pub.On("Publish", mock.Anything, mock.MatchedBy(func(m worker.Message) bool { return m.ID == "bad" })).
				Return(errors.New("broker down"))
			pub.On("Publish", mock.Anything, mock.Anything).Return(nil)
			w := worker.NewInMemoryWorker(q, pub)
			go w.Run(ctx)

			q.Enqueue(ctx, message("bad", model.MessageQuestionResolved))
			q.Enqueue(ctx, message("good", model.MessageQuestionResolved))
			convey.So(q.Close(), convey.ShouldBeNil)

			convey.Convey("Then it keeps going with the next message", func() {
				convey.So(waitDone(w, 2*time.Second), convey.ShouldBeTrue)
				convey.So(pub.published(), convey.ShouldResemble, []string{"good"})
				convey.So(pub.AssertNumberOfCalls(t, "Publish", 2), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When it is shut down twice", func() {
			w := worker.NewInMemoryWorker(q, pub)
			go w.Run(ctx)

			sctx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()

			convey.Convey("Then both calls succeed", func() {
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When its context is cancelled", func() {
			w := worker.NewInMemoryWorker(q, pub)
			cctx, cancel := context.WithCancel(ctx)
			go w.Run(cctx)
			cancel()

			convey.Convey("Then it stops", func() {
				convey.So(waitDone(w, time.Second), convey.ShouldBeTrue)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of four workers", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(200))
		pub := &mockPublisher{}
		pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

		pool := worker.NewPool(4, q, pub)
		convey.So(pool.Size(), convey.ShouldEqual, 4)

		convey.Convey("When a backlog is waiting and the pool shuts down", func() {
			ctx := context.Background()
			for i := 0; i < 100; i++ {
				convey.So(q.Enqueue(ctx, message(fmt.Sprintf("m%d", i), model.MessageBetPlaced)), convey.ShouldBeTrue)
			}
			pool.Start(ctx)
			convey.So(pool.Shutdown(ctx), convey.ShouldBeNil)

			convey.Convey("Then every message is published", func() {
				convey.So(pub.published(), convey.ShouldHaveLength, 100)
				convey.So(pool.Active(), convey.ShouldEqual, 0)

				// Stop after Shutdown is a no-op.
				pool.Stop()
			})
		})
	})

	convey.Convey("Given a non-positive size", t, func() {
		pool := worker.NewPool(0, queue.NewInMemoryQueue(), &mockPublisher{})

		convey.Convey("Then the pool runs one worker", func() {
			convey.So(pool.Size(), convey.ShouldEqual, 1)
		})
	})
}
