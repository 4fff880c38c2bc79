package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/betpool/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Store, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.Publisher, convey.ShouldEqual, config.PublisherLog)
			convey.So(cfg.Idempotency, convey.ShouldEqual, config.IdempotencyMemory)
			convey.So(cfg.QueueSize, convey.ShouldEqual, 4096)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 1)
			convey.So(cfg.CodeLength, convey.ShouldEqual, 8)
			convey.So(cfg.DefaultMinBetCents, convey.ShouldEqual, 500)
			convey.So(cfg.DefaultMaxBetCents, convey.ShouldEqual, 10_000)
			convey.So(cfg.IdempotencyTTL(), convey.ShouldEqual, 24*time.Hour)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Brokers(t *testing.T) {
	convey.Convey("Given a comma separated broker list with blanks", t, func() {
		cfg := config.New()
		cfg.KafkaBrokers = " kafka-1:9092, ,kafka-2:9092 ,"

		convey.So(cfg.Brokers(), convey.ShouldResemble, []string{"kafka-1:9092", "kafka-2:9092"})
	})

	convey.Convey("Given no brokers", t, func() {
		convey.So(config.New().Brokers(), convey.ShouldBeEmpty)
	})
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"empty addr", func(c *config.Config) { c.Addr = " " }, "addr must not be empty"},
		{"zero queue", func(c *config.Config) { c.QueueSize = 0 }, "queue_size"},
		{"zero workers", func(c *config.Config) { c.WorkerCount = 0 }, "worker_count"},
		{"zero dedupe", func(c *config.Config) { c.DedupeSize = 0 }, "dedupe_size"},
		{"zero ttl", func(c *config.Config) { c.IdempotencyTTLSec = 0 }, "idempotency_ttl_sec"},
		{"short codes", func(c *config.Config) { c.CodeLength = 3 }, "code_length"},
		{"min below a dollar", func(c *config.Config) { c.DefaultMinBetCents = 99 }, "default_min_bet_cents"},
		{"max below min", func(c *config.Config) { c.DefaultMaxBetCents = 400 }, "default_max_bet_cents"},
		{"unknown store", func(c *config.Config) { c.Store = "postgres" }, "unknown store"},
		{"sqlite without path", func(c *config.Config) { c.Store = config.StoreSQLite; c.SQLitePath = "" }, "sqlite_path"},
		{"unknown publisher", func(c *config.Config) { c.Publisher = "nats" }, "unknown publisher"},
		{"kafka without brokers", func(c *config.Config) { c.Publisher = config.PublisherKafka }, "kafka_brokers"},
		{"unknown idempotency", func(c *config.Config) { c.Idempotency = "memcached" }, "unknown idempotency"},
		{"redis without addr", func(c *config.Config) { c.Idempotency = config.IdempotencyRedis }, "redis_addr"},
	}

	convey.Convey("Given invalid configurations", t, func() {
		for _, tc := range cases {
			cfg := config.New()
			tc.mutate(cfg)
			err := cfg.Validate()

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, tc.want)
		}
	})

	convey.Convey("Given complete backend settings", t, func() {
		cfg := config.New()
		cfg.Store = config.StoreSQLite
		cfg.Publisher = config.PublisherKafka
		cfg.KafkaBrokers = "localhost:9092"
		cfg.Idempotency = config.IdempotencyRedis
		cfg.RedisAddr = "localhost:6379"

		convey.So(cfg.Validate(), convey.ShouldBeNil)
	})
}
