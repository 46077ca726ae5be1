package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/triboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func clearConfigEnvVars() {
	vars := []string{
		"TRIBOARD_CONFIG",
		"TRIBOARD_LOG_LEVEL",
		"TRIBOARD_ADDR",
		"TRIBOARD_DB_PATH",
		"TRIBOARD_BOARD_SIZE",
		"TRIBOARD_GUEST_PREFIX",
		"TRIBOARD_ADMIN_TOKEN",
		"TRIBOARD_STATS_QUEUE_SIZE",
		"TRIBOARD_STATS_WORKER_COUNT",
		"TRIBOARD_DEDUPE_SIZE",
		"TRIBOARD_STATS_RETENTION_DAYS",
	}
	for _, v := range vars {
		_ = os.Unsetenv(v)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
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
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.BoardSize, convey.ShouldEqual, 10)
				convey.So(cfg.GuestPrefix, convey.ShouldEqual, "游客")
				convey.So(cfg.StatsRetentionDays, convey.ShouldEqual, 7)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("TRIBOARD_ADDR", ":9090")
			_ = os.Setenv("TRIBOARD_BOARD_SIZE", "5")
			_ = os.Setenv("TRIBOARD_ADMIN_TOKEN", "secret")
			_ = os.Setenv("TRIBOARD_STATS_WORKER_COUNT", "3")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.BoardSize, convey.ShouldEqual, 5)
				convey.So(cfg.AdminToken, convey.ShouldEqual, "secret")
				convey.So(cfg.StatsWorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.DBPath, convey.ShouldEqual, "data/triboard.db")
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			yamlContent := `
addr: ":7070"
db_path: "/tmp/triboard-test.db"
board_size: 20
stats_queue_size: 500
`
			tmpFile := createTempConfigFile(t, yamlContent)

			_ = os.Setenv("TRIBOARD_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.DBPath, convey.ShouldEqual, "/tmp/triboard-test.db")
				convey.So(cfg.BoardSize, convey.ShouldEqual, 20)
				convey.So(cfg.StatsQueueSize, convey.ShouldEqual, 500)
			})
		})

		convey.Convey("When env vars and a file are both present", func() {
			yamlContent := `
addr: ":7070"
board_size: 20
`
			tmpFile := createTempConfigFile(t, yamlContent)

			_ = os.Setenv("TRIBOARD_CONFIG", tmpFile)
			_ = os.Setenv("TRIBOARD_ADDR", ":6060")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":6060")
				convey.So(cfg.BoardSize, convey.ShouldEqual, 20)
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("TRIBOARD_CONFIG", "/nonexistent/config.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should fail with a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a value fails validation", func() {
			_ = os.Setenv("TRIBOARD_BOARD_SIZE", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should fail with an invalid config error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}
