// Package service provides the settlement service that implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/okian/betpool/internal/adapters/mq/publisher"
	"github.com/okian/betpool/internal/adapters/mq/queue"
	"github.com/okian/betpool/internal/adapters/mq/worker"
	"github.com/okian/betpool/internal/adapters/repository"
	"github.com/okian/betpool/internal/domain/clock"
	"github.com/okian/betpool/internal/domain/dedupe"
	"github.com/okian/betpool/internal/domain/ledger"
	"github.com/okian/betpool/internal/domain/model"
	"github.com/okian/betpool/internal/domain/money"
	"github.com/okian/betpool/internal/domain/question"
	"github.com/okian/betpool/pkg/logger"
	"github.com/okian/betpool/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultQueueSize   = 4096
	defaultWorkerCount = 1
	defaultCodeLength  = 8
	minCodeLength      = 4
	stopTimeout        = 30 * time.Second
)

var (
	defaultMinBet = money.FromDollars(5)
	defaultMaxBet = money.FromDollars(100)
)

// eventState holds an event and guards its participant list.
type eventState struct {
	mu     sync.Mutex
	event  model.Event
	bounds model.Bounds
}

// questionState is one question's critical section. Every read or write of
// q or ledger happens with mu held.
type questionState struct {
	mu     sync.Mutex
	q      model.Question
	ledger *ledger.Ledger
}

// Service implements the API dependencies for the betting pool.
type Service struct {
	// mu guards the indexes below, never a question's state.
	mu         sync.RWMutex
	users      map[string]model.User
	events     map[string]*eventState
	eventOrder []string
	byCode     map[string]string
	questions  map[string]*questionState

	// Core components
	store     repository.Store
	deduper   dedupe.Deduper
	publisher worker.Publisher
	outbox    *queue.InMemoryQueue
	pool      *worker.Pool
	clock     clock.Clock
	validate  *validator.Validate

	// Configuration
	workerCount   int
	queueSize     int
	codeLength    int
	defaultBounds model.Bounds

	// State
	started    bool
	poolCancel context.CancelFunc

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the clock used for cutoffs and timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithStore sets the persistence backend. Defaults to an in-memory store.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithPublisher sets where outbox messages are delivered. Defaults to a
// publisher that logs each message.
func WithPublisher(p worker.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithQueueSize sets the outbox queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of outbox workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithDeduper sets the idempotency key store used by PlaceBetOnce.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}

// WithCodeLength sets the length of generated join codes.
func WithCodeLength(n int) Option {
	return func(s *Service) {
		if n >= minCodeLength {
			s.codeLength = n
		}
	}
}

// WithDefaultBetBounds sets the stake bounds used when an event is created
// without any. Invalid bounds are ignored.
func WithDefaultBetBounds(minBet, maxBet money.Money) Option {
	return func(s *Service) {
		if minBet > 0 && maxBet >= minBet {
			s.defaultBounds = model.Bounds{Min: minBet, Max: maxBet}
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		users:         make(map[string]model.User),
		events:        make(map[string]*eventState),
		byCode:        make(map[string]string),
		questions:     make(map[string]*questionState),
		clock:         clock.System{},
		validate:      newValidator(),
		workerCount:   defaultWorkerCount,
		queueSize:     defaultQueueSize,
		codeLength:    defaultCodeLength,
		defaultBounds: model.Bounds{Min: defaultMinBet, Max: defaultMaxBet},
		logger:        logger.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.deduper == nil {
		s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithClock(s.clock))
	}
	if s.publisher == nil {
		s.publisher = publisher.NewLogPublisher(s.logger.Named("outbox"))
	}

	return s
}

// Start loads persisted state and starts the outbox workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting settlement service...")

	if err := s.load(ctx); err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	s.outbox = queue.NewInMemoryQueue(
		queue.WithCapacity(s.queueSize),
		queue.WithBufferSize(s.queueSize),
	)
	s.pool = worker.NewPool(s.workerCount, s.outbox, s.publisher, worker.WithLogger(s.logger))

	// Workers outlive the caller's ctx; Stop ends them.
	poolCtx, cancel := context.WithCancel(context.Background())
	s.poolCancel = cancel
	s.pool.Start(poolCtx)

	s.started = true
	metrics.UpdateTotalUsers(len(s.users))
	metrics.UpdateTotalEvents(len(s.events))
	metrics.UpdateWorkerCount(s.workerCount)
	metrics.UpdateQueueCapacity(s.queueSize)

	s.logger.Info(ctx, "settlement service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("events", len(s.events)),
		logger.Int("questions", len(s.questions)),
	)

	return nil
}

// Stop drains the outbox and ends the workers. The store and publisher
// belong to the caller, so a stopped service can be started again.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping settlement service...")

	drainCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	if err := s.pool.Shutdown(drainCtx); err != nil {
		s.logger.Warn(ctx, "outbox did not drain", logger.Error(err))
	}
	cancel()
	s.poolCancel()

	s.started = false
	s.logger.Info(ctx, "settlement service stopped")
}

// load rebuilds the indexes and ledgers from the store. Called with mu held.
func (s *Service) load(ctx context.Context) error {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return err
	}

	s.users = make(map[string]model.User, len(snap.Users))
	s.events = make(map[string]*eventState, len(snap.Events))
	s.eventOrder = s.eventOrder[:0]
	s.byCode = make(map[string]string, len(snap.Events))
	s.questions = make(map[string]*questionState, len(snap.Questions))

	for _, u := range snap.Users {
		s.users[u.ID] = u
	}
	for _, e := range snap.Events {
		s.events[e.ID] = &eventState{event: e, bounds: e.Bounds()}
		s.eventOrder = append(s.eventOrder, e.ID)
		s.byCode[e.Code] = e.ID
	}

	byQuestion := make(map[string][]model.Bet)
	for _, b := range snap.Bets {
		byQuestion[b.QuestionID] = append(byQuestion[b.QuestionID], b)
	}
	for _, q := range snap.Questions {
		l, err := ledger.Restore(q.ID, byQuestion[q.ID])
		if err != nil {
			return fmt.Errorf("restore ledger %s: %w", q.ID, err)
		}
		s.questions[q.ID] = &questionState{q: q, ledger: l}
	}

	s.logger.Info(ctx, "state loaded",
		logger.Int("users", len(snap.Users)),
		logger.Int("events", len(snap.Events)),
		logger.Int("bets", len(snap.Bets)),
	)
	return nil
}

// persist runs a store write, timing it under op.
func (s *Service) persist(op string, write func() error) error {
	start := time.Now()
	err := write()
	metrics.RecordStoreLatency(op, float64(time.Since(start).Nanoseconds())/1e6)
	if err != nil {
		metrics.RecordStoreError(op)
		metrics.RecordErrorByComponent("store", op)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RuntimeStats returns service statistics for monitoring.
func (s *Service) RuntimeStats() map[string]any {
	s.mu.RLock()
	started, outbox, pool := s.started, s.outbox, s.pool
	users, events := len(s.users), len(s.events)
	stats := map[string]any{
		"started":     started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"users":       users,
		"events":      events,
		"questions":   len(s.questions),
		"dedupeSize":  s.deduper.Size(),
	}
	states := make([]*questionState, 0, len(s.questions))
	for _, qs := range s.questions {
		states = append(states, qs)
	}
	s.mu.RUnlock()

	now := s.clock.Now()
	open, bets := 0, 0
	for _, qs := range states {
		qs.mu.Lock()
		if question.Apply(&qs.q, now) == model.QuestionOpen {
			open++
		}
		bets += qs.ledger.Len()
		qs.mu.Unlock()
	}
	stats["openQuestions"] = open
	stats["bets"] = bets

	if started {
		queueLen := outbox.Len(context.Background())
		stats["queueLength"] = queueLen
		stats["activeWorkers"] = pool.Active()
		metrics.UpdateQueueSize(queueLen)
	}

	metrics.UpdateOpenQuestions(open)
	metrics.UpdateTotalEvents(events)
	metrics.UpdateTotalUsers(users)

	return stats
}
