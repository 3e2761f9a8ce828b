package main

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/pong/internal/adapters/http/api"
	app "github.com/okian/pong/internal/app"
	"github.com/okian/pong/internal/config"
	"github.com/okian/pong/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("PONG_ADDR", ":8080")
			_ = os.Setenv("PONG_CAPACITY", "5")
			defer func() {
				_ = os.Unsetenv("PONG_ADDR")
				_ = os.Unsetenv("PONG_CAPACITY")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				ctx := context.Background()
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Capacity, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When testing service creation", func() {
			convey.Convey("Then service should be creatable with default options", func() {
				svc := app.New()
				convey.So(svc, convey.ShouldNotBeNil)
			})

			convey.Convey("And service should be creatable with custom options", func() {
				svc := app.New(
					app.WithCapacity(5),
					app.WithStreamSize(2048),
					app.WithDispatcherCount(4),
				)
				convey.So(svc, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When testing HTTP server creation", func() {
			svc := app.New()
			convey.So(svc, convey.ShouldNotBeNil)

			convey.Convey("Then HTTP server should be creatable", func() {
				server := api.NewServer(svc, svc)
				convey.So(server, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given main application integration", t, func() {
		convey.Convey("When testing full application setup", func() {
			_ = os.Setenv("PONG_ADDR", ":8080")
			_ = os.Setenv("PONG_DISPATCHER_COUNT", "2")
			defer func() {
				_ = os.Unsetenv("PONG_ADDR")
				_ = os.Unsetenv("PONG_DISPATCHER_COUNT")
			}()

			convey.Convey("Then all components should work together", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)

				svc := app.New(
					app.WithCapacity(cfg.Capacity),
					app.WithStreamSize(cfg.StreamSize),
					app.WithDispatcherCount(cfg.DispatcherCount),
				)
				convey.So(svc, convey.ShouldNotBeNil)

				server := api.NewServer(svc, svc)
				convey.So(server, convey.ShouldNotBeNil)

				mux := http.NewServeMux()
				convey.So(mux, convey.ShouldNotBeNil)

				server.Register(ctx, mux)

				svc.Stop()
			})
		})
	})
}

func TestMainApplicationErrorHandling(t *testing.T) {
	convey.Convey("Given main application error handling", t, func() {
		convey.Convey("When testing invalid configuration", func() {
			_ = os.Setenv("PONG_ADDR", "")
			defer func() { _ = os.Unsetenv("PONG_ADDR") }()

			convey.Convey("Then configuration loading should fail", func() {
				ctx := context.Background()
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When testing service creation with invalid options", func() {
			convey.Convey("Then service should handle invalid options gracefully", func() {
				svc := app.New(
					app.WithCapacity(0),
					app.WithStreamSize(0),
					app.WithDispatcherCount(0),
				)
				convey.So(svc, convey.ShouldNotBeNil)
				convey.So(svc.GetStats(), convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainServiceMetricsUpdater(t *testing.T) {
	convey.Convey("Given the service metrics updater", t, func() {
		svc := app.New()
		convey.So(svc, convey.ShouldNotBeNil)

		convey.Convey("Then it should stop when the context expires", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() {
				startServiceMetricsUpdater(ctx, svc)
			}, convey.ShouldNotPanic)
		})
	})
}
