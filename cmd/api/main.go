package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/care-booking/internal/app"
	"github.com/jwalitptl/care-booking/internal/config"
	bookinghandler "github.com/jwalitptl/care-booking/internal/handler/booking"
	"github.com/jwalitptl/care-booking/internal/handler/health"
	promhandler "github.com/jwalitptl/care-booking/internal/handler/prometheus"
	tickethandler "github.com/jwalitptl/care-booking/internal/handler/ticket"
	"github.com/jwalitptl/care-booking/internal/middleware"
	"github.com/jwalitptl/care-booking/internal/router"
	"github.com/jwalitptl/care-booking/pkg/auth"
	"github.com/jwalitptl/care-booking/pkg/metrics"
)

const metricsNamespace = "care_booking"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := app.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize stores
	stores, err := app.OpenStores(ctx, cfg.Database)
	if err != nil {
		logger.Fatal(err, "failed to open stores", "driver", cfg.Database.Driver)
	}
	defer stores.Close()

	// Metrics share one registry with the HTTP /metrics endpoint
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(metricsNamespace, "")
	appMetrics.MustRegister(registry)

	services := app.NewServices(stores, cfg.Booking, logger, appMetrics)

	if err := middleware.RegisterValidators(); err != nil {
		logger.Fatal(err, "failed to register validators")
	}

	healthH := health.NewHandler().WithCheck("database", stores.Ping)

	// Initialize Redis message broker and the inline outbox processor
	if cfg.Outbox.Inline {
		broker, err := app.NewBroker(cfg.Redis, logger)
		if err != nil {
			logger.Fatal(err, "failed to connect to Redis")
		}
		defer broker.Close()
		healthH.WithCheck("redis", broker.Ping)

		processor, err := app.NewOutboxProcessor(stores, broker, cfg.Outbox, logger, appMetrics)
		if err != nil {
			logger.Fatal(err, "failed to create outbox processor")
		}
		go processor.Start(ctx)
	}

	r := router.NewRouter(
		middleware.NewAuthMiddleware(auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer)),
		healthH,
		promhandler.New(registry, metricsNamespace),
		router.RouterConfig{
			Mode:          cfg.Server.Mode,
			RateLimit:     rate.Limit(cfg.RateLimit.RPS),
			RateBurst:     cfg.RateLimit.Burst,
			RateTTL:       cfg.RateLimit.TTL,
			DefaultLocale: cfg.Booking.DefaultLocale,
		},
		bookinghandler.NewHandler(services.Bookings),
		tickethandler.NewHandler(services.Tickets),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("starting server", "addr", srv.Addr, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "failed to start server")
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "server forced to shutdown")
		return
	}

	logger.Info("server exited properly")
}
