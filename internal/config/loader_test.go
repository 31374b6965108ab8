package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Yuvrajsinh007/BidCycle/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars(t)

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then the defaults come back", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.SweepInterval, convey.ShouldEqual, time.Minute)
				convey.So(cfg.Increment().String(), convey.ShouldEqual, "1")
				convey.So(cfg.LedgerBackend, convey.ShouldEqual, config.LedgerMemory)
			})
		})

		convey.Convey("When environment variables are set", func() {
			t.Setenv("BIDCYCLE_ADDR", ":8080")
			t.Setenv("BIDCYCLE_SWEEP_INTERVAL", "15s")
			t.Setenv("BIDCYCLE_BID_INCREMENT", "0.50")
			t.Setenv("BIDCYCLE_MAX_RESOLVE_ATTEMPTS", "9")

			cfg, err := config.Load(ctx)

			convey.Convey("Then they override the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.SweepInterval, convey.ShouldEqual, 15*time.Second)
				convey.So(cfg.Increment().String(), convey.ShouldEqual, "0.5")
				convey.So(cfg.MaxResolveAttempts, convey.ShouldEqual, 9)
			})
		})

		convey.Convey("When a YAML file is supplied", func() {
			path := filepath.Join(t.TempDir(), "bidcycle.yaml")
			body := "addr: \":7070\"\nledger_backend: redis\nredis_addr: cache:6379\nsubscriber_buffer: 8\n"
			convey.So(os.WriteFile(path, []byte(body), 0o600), convey.ShouldBeNil)
			t.Setenv(config.EnvConfigFile, path)
			t.Setenv("BIDCYCLE_SUBSCRIBER_BUFFER", "16")

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values apply and env wins over the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.LedgerBackend, convey.ShouldEqual, config.LedgerRedis)
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "cache:6379")
				convey.So(cfg.SubscriberBuffer, convey.ShouldEqual, 16)
			})
		})

		convey.Convey("When the file does not exist", func() {
			t.Setenv(config.EnvConfigFile, filepath.Join(t.TempDir(), "missing.yaml"))

			_, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a value fails validation", func() {
			t.Setenv("BIDCYCLE_BID_INCREMENT", "-2")

			_, err := config.Load(ctx)

			convey.Convey("Then an invalid config error is returned", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, config.EnvPrefix) {
			t.Setenv(key, "")
			_ = os.Unsetenv(key)
		}
	}
}
