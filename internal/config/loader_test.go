package config_test

import (
	"context"
	"os"
	"testing"

	"github.com/procurekit/bidding/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func clearConfigEnvVars() {
	for _, key := range []string{
		"BIDDING_CONFIG",
		"BIDDING_LOG_LEVEL",
		"BIDDING_ADDR",
		"BIDDING_POSTGRES_DSN",
		"BIDDING_MIGRATIONS_URL",
		"BIDDING_REDIS_ADDR",
		"BIDDING_REDIS_CHANNEL",
		"BIDDING_SUBSCRIBER_QUEUE_SIZE",
		"BIDDING_OPERATION_TIMEOUT_MS",
	} {
		os.Unsetenv(key)
	}
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.PostgresDSN, convey.ShouldBeEmpty)
				convey.So(cfg.RedisAddr, convey.ShouldBeEmpty)
				convey.So(cfg.RedisChannel, convey.ShouldEqual, "bidding.signals")
				convey.So(cfg.SubscriberQueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.OperationTimeoutMS, convey.ShouldEqual, 5000)
			})
		})

		convey.Convey("When environment variables override defaults", func() {
			clearConfigEnvVars()
			os.Setenv("BIDDING_ADDR", ":8081")
			os.Setenv("BIDDING_LOG_LEVEL", "debug")
			os.Setenv("BIDDING_SUBSCRIBER_QUEUE_SIZE", "128")
			os.Setenv("BIDDING_REDIS_ADDR", "localhost:6379")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then the overrides win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8081")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.SubscriberQueueSize, convey.ShouldEqual, 128)
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "localhost:6379")
			})

			convey.Convey("And untouched fields keep their defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.RedisChannel, convey.ShouldEqual, "bidding.signals")
				convey.So(cfg.OperationTimeoutMS, convey.ShouldEqual, 5000)
			})
		})

		convey.Convey("When a config file is provided", func() {
			clearConfigEnvVars()
			f, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
			convey.So(err, convey.ShouldBeNil)
			_, err = f.WriteString("addr: \":7070\"\noperation_timeout_ms: 2500\n")
			convey.So(err, convey.ShouldBeNil)
			convey.So(f.Close(), convey.ShouldBeNil)
			os.Setenv("BIDDING_CONFIG", f.Name())
			defer clearConfigEnvVars()

			convey.Convey("Then file values override defaults", func() {
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.OperationTimeoutMS, convey.ShouldEqual, 2500)
			})

			convey.Convey("And env values override the file", func() {
				os.Setenv("BIDDING_ADDR", ":6060")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":6060")
				convey.So(cfg.OperationTimeoutMS, convey.ShouldEqual, 2500)
			})
		})

		convey.Convey("When the config file does not exist", func() {
			clearConfigEnvVars()
			os.Setenv("BIDDING_CONFIG", "/nonexistent/config.yaml")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then loading fails with the load sentinel", func() {
				convey.So(err, convey.ShouldWrap, config.ErrLoadConfig)
			})
		})

		convey.Convey("When a value fails validation", func() {
			clearConfigEnvVars()
			os.Setenv("BIDDING_SUBSCRIBER_QUEUE_SIZE", "0")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then loading fails with the invalid-config sentinel", func() {
				convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
			})
		})
	})
}

func TestConfig_OperationTimeout(t *testing.T) {
	convey.Convey("Given a config", t, func() {
		cfg := config.New()

		convey.Convey("Then the timeout helper converts milliseconds", func() {
			convey.So(cfg.OperationTimeout().Milliseconds(), convey.ShouldEqual, 5000)
		})
	})
}
