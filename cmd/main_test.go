package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/okian/explorer/internal/adapters/http/api"
	"github.com/okian/explorer/internal/adapters/http/swagger"
	app "github.com/okian/explorer/internal/app"
	"github.com/okian/explorer/internal/config"
	"github.com/okian/explorer/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestServiceOptions(t *testing.T) {
	convey.Convey("Given configuration from the environment", t, func() {
		setEnv(t, map[string]string{
			"EXPLORER_ADDR":         ":8081",
			"EXPLORER_QUEUE_SIZE":   "1000",
			"EXPLORER_WORKER_COUNT": "4",
			"EXPLORER_MAX_PLY":      "20",
		})
		_ = os.Unsetenv("EXPLORER_CONFIG")

		cfg, err := config.Load(context.Background())
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then the service is built with those values", func() {
			svc := app.New(serviceOptions(cfg)...)
			stats := svc.GetStats()
			convey.So(cfg.Addr, convey.ShouldEqual, ":8081")
			convey.So(stats["queueSize"], convey.ShouldEqual, 1000)
			convey.So(stats["workerCount"], convey.ShouldEqual, 4)
			convey.So(stats["maxPly"], convey.ShouldEqual, 20)
		})
	})
}

func TestRoutesWiring(t *testing.T) {
	convey.Convey("Given a started service behind the full mux", t, func() {
		ctx := context.Background()
		svc := app.New(app.WithWorkerCount(1))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		mux := http.NewServeMux()
		swagger.Register(ctx, mux)
		api.NewServer(svc, svc).Register(ctx, mux)

		convey.Convey("Then API and docs routes are all served", func() {
			for _, path := range []string{"/healthz", "/metrics", "/stats", "/openapi.yaml", "/api-docs"} {
				rec := httptest.NewRecorder()
				mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("Then an unknown position is reported as not found", func() {
			rec := httptest.NewRecorder()
			target := "/explorer?fen=" + strings.ReplaceAll("8/8/8/8/8/8/8/K6k w - - 0 1", " ", "+")
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, http.NoBody))
			convey.So(rec.Code, convey.ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestServiceMetricsUpdater(t *testing.T) {
	convey.Convey("Given a service", t, func() {
		svc := app.New()

		convey.Convey("Then a single update does not panic", func() {
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})

		convey.Convey("Then the updater returns once its context is done", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			done := make(chan struct{})
			go func() {
				startServiceMetricsUpdater(ctx, svc)
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("updater did not stop")
			}
		})
	})
}
