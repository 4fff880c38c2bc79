package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/okian/betpool/internal/adapters/http/api"
	"github.com/okian/betpool/internal/adapters/http/site"
	"github.com/okian/betpool/internal/adapters/http/swagger"
	"github.com/okian/betpool/internal/adapters/idempotency"
	"github.com/okian/betpool/internal/adapters/mq/publisher"
	"github.com/okian/betpool/internal/adapters/repository"
	"github.com/okian/betpool/internal/adapters/repository/sqlite"
	service "github.com/okian/betpool/internal/app"
	"github.com/okian/betpool/internal/config"
	"github.com/okian/betpool/internal/domain/dedupe"
	"github.com/okian/betpool/internal/domain/money"
	"github.com/okian/betpool/pkg/logger"
	"github.com/okian/betpool/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// We collect our own system metrics on a custom registry.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't available yet.
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.InitWithFormat(cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "betpool stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

// run wires the service from cfg and serves HTTP until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	deduper, closeDeduper, err := buildDeduper(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDeduper()

	store, err := buildStore(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error(ctx, "error closing store", logger.Error(err))
		}
	}()

	pub, err := buildPublisher(cfg, log)
	if err != nil {
		return err
	}
	// Deferred before svc.Stop so the outbox drains into an open publisher.
	defer func() {
		if err := pub.Close(); err != nil {
			log.Error(ctx, "error closing publisher", logger.Error(err))
		}
	}()

	svc := service.New(
		service.WithLogger(log.Named("settlement")),
		service.WithStore(store),
		service.WithPublisher(pub),
		service.WithDeduper(deduper),
		service.WithQueueSize(cfg.QueueSize),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithCodeLength(cfg.CodeLength),
		service.WithDefaultBetBounds(money.FromCents(cfg.DefaultMinBetCents), money.FromCents(cfg.DefaultMaxBetCents)),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	mux := http.NewServeMux()
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)
	api.NewServer(svc, api.WithLogger(log.Named("http"))).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(gctx, "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		tick(gctx, systemMetricsInterval, updateSystemMetrics)
		return nil
	})
	g.Go(func() error {
		tick(gctx, serviceMetricsInterval, func() { svc.RuntimeStats() })
		return nil
	})

	err = g.Wait()
	log.Info(ctx, "server stopped")
	return err
}

func buildStore(cfg *config.Config, log logger.Logger) (repository.Store, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		st, err := sqlite.New(cfg.SQLitePath, sqlite.WithLogger(log.Named("sqlite")))
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return st, nil
	case config.StoreMemory:
		return repository.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown store %q", config.ErrInvalidConfig, cfg.Store)
	}
}

func buildPublisher(cfg *config.Config, log logger.Logger) (publisher.Publisher, error) {
	switch cfg.Publisher {
	case config.PublisherKafka:
		p, err := publisher.NewKafkaPublisher(cfg.Brokers(), cfg.KafkaTopic, log.Named("kafka"))
		if err != nil {
			return nil, fmt.Errorf("kafka publisher: %w", err)
		}
		return p, nil
	case config.PublisherNone:
		return publisher.Discard{}, nil
	case config.PublisherLog:
		return publisher.NewLogPublisher(log.Named("outbox")), nil
	default:
		return nil, fmt.Errorf("%w: unknown publisher %q", config.ErrInvalidConfig, cfg.Publisher)
	}
}

// buildDeduper returns the idempotency backend and a func releasing it.
func buildDeduper(ctx context.Context, cfg *config.Config) (dedupe.Deduper, func(), error) {
	switch cfg.Idempotency {
	case config.IdempotencyRedis:
		rdb, err := idempotency.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		return idempotency.NewRedisDeduper(rdb, cfg.IdempotencyTTL()), func() { _ = rdb.Close() }, nil
	case config.IdempotencyMemory:
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.DedupeSize), dedupe.WithTTL(cfg.IdempotencyTTL()))
		return d, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown idempotency backend %q", config.ErrInvalidConfig, cfg.Idempotency)
	}
}

func tick(ctx context.Context, every time.Duration, fn func()) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
