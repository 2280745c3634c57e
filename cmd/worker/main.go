package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/care-booking/internal/app"
	"github.com/jwalitptl/care-booking/internal/config"
	"github.com/jwalitptl/care-booking/internal/handler/health"
	promhandler "github.com/jwalitptl/care-booking/internal/handler/prometheus"
	"github.com/jwalitptl/care-booking/pkg/logger"
	"github.com/jwalitptl/care-booking/pkg/metrics"
)

const metricsNamespace = "care_booking"

func setupHealthCheck(addr string, healthH *health.Handler, registry *prometheus.Registry, logger *logger.Logger) *http.Server {
	engine := gin.New()
	engine.Use(gin.Recovery())
	healthH.RegisterRoutes(engine)
	engine.GET("/metrics", promhandler.New(registry, metricsNamespace+"_worker").Handler())

	srv := &http.Server{Addr: addr, Handler: engine}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "health check server failed")
		}
	}()
	return srv
}

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Database.Driver != "postgres" {
		log.Fatal().Str("driver", cfg.Database.Driver).Msg("the worker needs a shared postgres outbox")
	}

	gin.SetMode(gin.ReleaseMode)
	logger := app.NewLogger(cfg.Log).WithFields(map[string]interface{}{"service": "outbox-worker"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg.Database)
	if err != nil {
		logger.Fatal(err, "failed to open stores")
	}
	defer stores.Close()

	broker, err := app.NewBroker(cfg.Redis, logger)
	if err != nil {
		logger.Fatal(err, "failed to create Redis broker")
	}
	defer broker.Close()

	registry := prometheus.NewRegistry()
	m := metrics.New(metricsNamespace, "outbox_processor")
	m.MustRegister(registry)

	processor, err := app.NewOutboxProcessor(stores, broker, cfg.Outbox, logger, m)
	if err != nil {
		logger.Fatal(err, "failed to create outbox processor")
	}

	healthH := health.NewHandler().
		WithCheck("database", stores.Ping).
		WithCheck("redis", broker.Ping)
	srv := setupHealthCheck(fmt.Sprintf(":%d", cfg.Server.HealthPort), healthH, registry, logger)

	processor.Start(ctx)

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "health server forced to shutdown")
	}
}
