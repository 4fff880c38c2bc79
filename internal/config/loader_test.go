package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/betpool/internal/config"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 4096)
				convey.So(cfg.Store, convey.ShouldEqual, config.StoreMemory)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("BETPOOL_ADDR", ":8080")
			_ = os.Setenv("BETPOOL_QUEUE_SIZE", "100000")
			_ = os.Setenv("BETPOOL_WORKER_COUNT", "4")
			_ = os.Setenv("BETPOOL_DEFAULT_MIN_BET_CENTS", "100")
			_ = os.Setenv("BETPOOL_PUBLISHER", "none")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 100000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
				convey.So(cfg.DefaultMinBetCents, convey.ShouldEqual, 100)
				convey.So(cfg.Publisher, convey.ShouldEqual, config.PublisherNone)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
store: sqlite
sqlite_path: /var/lib/betpool/pool.db
queue_size: 300
publisher: kafka
kafka_brokers: "k1:9092,k2:9092"
kafka_topic: settlements
code_length: 6
`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("BETPOOL_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Store, convey.ShouldEqual, config.StoreSQLite)
				convey.So(cfg.SQLitePath, convey.ShouldEqual, "/var/lib/betpool/pool.db")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 300)
				convey.So(cfg.Brokers(), convey.ShouldResemble, []string{"k1:9092", "k2:9092"})
				convey.So(cfg.KafkaTopic, convey.ShouldEqual, "settlements")
				convey.So(cfg.CodeLength, convey.ShouldEqual, 6)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
queue_size: 300
worker_count: 2
`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("BETPOOL_CONFIG", tmpFile)
			_ = os.Setenv("BETPOOL_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 300)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("BETPOOL_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("BETPOOL_CONFIG", "/nonexistent/betpool.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("BETPOOL_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a backend is missing its settings", func() {
			_ = os.Setenv("BETPOOL_IDEMPOTENCY", "redis")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "redis_addr")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("BETPOOL_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestConfigLoaderDotEnv(t *testing.T) {
	convey.Convey("Given a .env file in the working directory", t, func() {
		dir := t.TempDir()
		err := os.WriteFile(filepath.Join(dir, ".env"), []byte("BETPOOL_CODE_LENGTH=6\nBETPOOL_LOG_LEVEL=debug\n"), 0o600)
		convey.So(err, convey.ShouldBeNil)
		t.Chdir(dir)

		// Registers cleanup so values loaded from .env do not leak.
		t.Setenv("BETPOOL_CODE_LENGTH", "")
		t.Setenv("BETPOOL_LOG_LEVEL", "warn")
		_ = os.Unsetenv("BETPOOL_CODE_LENGTH")
		defer clearConfigEnvVars()

		cfg, err := config.Load(context.Background())

		convey.Convey("Then unset variables come from the file and set ones win", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.CodeLength, convey.ShouldEqual, 6)
			convey.So(cfg.LogLevel, convey.ShouldEqual, "warn")
		})
	})
}

func clearConfigEnvVars() {
	for _, envVar := range []string{
		"BETPOOL_CONFIG",
		"BETPOOL_ADDR",
		"BETPOOL_QUEUE_SIZE",
		"BETPOOL_WORKER_COUNT",
		"BETPOOL_DEFAULT_MIN_BET_CENTS",
		"BETPOOL_PUBLISHER",
		"BETPOOL_IDEMPOTENCY",
		"BETPOOL_CODE_LENGTH",
	} {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "betpool-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
