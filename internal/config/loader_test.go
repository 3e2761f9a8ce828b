package config_test

import (
	"context"
	"os"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/pong/internal/config"
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
				convey.So(cfg.Capacity, convey.ShouldEqual, 3)
				convey.So(cfg.MaxAttempts, convey.ShouldEqual, 5)
				convey.So(cfg.StreamSize, convey.ShouldEqual, 1024)
				convey.So(cfg.DispatcherCount, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("PONG_ADDR", ":8080")
			_ = os.Setenv("PONG_CAPACITY", "5")
			_ = os.Setenv("PONG_MAX_ATTEMPTS", "10")
			_ = os.Setenv("PONG_STREAM_SIZE", "2048")
			_ = os.Setenv("PONG_DISPATCHER_COUNT", "4")
			_ = os.Setenv("PONG_STORE_PATH", "/tmp/pong.db")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Capacity, convey.ShouldEqual, 5)
				convey.So(cfg.MaxAttempts, convey.ShouldEqual, 10)
				convey.So(cfg.StreamSize, convey.ShouldEqual, 2048)
				convey.So(cfg.DispatcherCount, convey.ShouldEqual, 4)
				convey.So(cfg.StorePath, convey.ShouldEqual, "/tmp/pong.db")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
capacity: 2
stream_size: 512
dispatcher_count: 3
default_webhook: "https://hooks.example.com/pong"
webhooks:
  backend: "https://hooks.example.com/backend"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("PONG_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Capacity, convey.ShouldEqual, 2)
				convey.So(cfg.StreamSize, convey.ShouldEqual, 512)
				convey.So(cfg.DispatcherCount, convey.ShouldEqual, 3)
				convey.So(cfg.DefaultWebhook, convey.ShouldEqual, "https://hooks.example.com/pong")
				convey.So(cfg.Webhooks["backend"], convey.ShouldEqual, "https://hooks.example.com/backend")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
capacity: 2
stream_size: 512
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("PONG_CONFIG", tmpFile)
			_ = os.Setenv("PONG_ADDR", ":8080") // This should override the file
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")   // Overridden by env
				convey.So(cfg.Capacity, convey.ShouldEqual, 2)     // From file
				convey.So(cfg.StreamSize, convey.ShouldEqual, 512) // From file
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			invalidYaml := `invalid: yaml: content: [`
			tmpFile := createTempConfigFile(invalidYaml)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("PONG_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("PONG_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("PONG_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with zero capacity", func() {
			_ = os.Setenv("PONG_CAPACITY", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "capacity must be at least 1")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a negative dispatcher count", func() {
			_ = os.Setenv("PONG_DISPATCHER_COUNT", "-2")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "dispatcher_count must be at least 1")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("PONG_CAPACITY", "invalid")
			_ = os.Setenv("PONG_STREAM_SIZE", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with partial YAML file", func() {
			yamlContent := `
addr: ":9090"
capacity: 4
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("PONG_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should merge with defaults for missing fields", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")          // From file
				convey.So(cfg.Capacity, convey.ShouldEqual, 4)            // From file
				convey.So(cfg.MaxAttempts, convey.ShouldEqual, 5)         // From defaults
				convey.So(cfg.StreamSize, convey.ShouldEqual, 1024)       // From defaults
				convey.So(cfg.DispatcherCount, convey.ShouldEqual, 2)     // From defaults
				convey.So(cfg.WebhookTimeoutMS, convey.ShouldEqual, 5000) // From defaults
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"PONG_CONFIG",
		"PONG_ADDR",
		"PONG_CAPACITY",
		"PONG_MAX_ATTEMPTS",
		"PONG_STREAM_SIZE",
		"PONG_DISPATCHER_COUNT",
		"PONG_STORE_PATH",
		"PONG_WEBHOOK_TIMEOUT_MS",
		"PONG_DEFAULT_WEBHOOK",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "pong-config-*.yaml")
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
