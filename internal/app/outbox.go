package app

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/care-booking/internal/config"
	"github.com/jwalitptl/care-booking/pkg/logger"
	"github.com/jwalitptl/care-booking/pkg/messaging/redis"
	"github.com/jwalitptl/care-booking/pkg/metrics"
	"github.com/jwalitptl/care-booking/pkg/worker"
)

// NewBroker connects the Redis publisher used by the outbox processor.
func NewBroker(cfg config.RedisConfig, l *logger.Logger) (*redis.RedisBroker, error) {
	zl := l.Zerolog()
	return redis.NewRedisBroker(redis.Config{
		URL:          cfg.URL,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}, &zl)
}

// NewOutboxProcessor builds the processor from the outbox section.
func NewOutboxProcessor(stores *Stores, broker *redis.RedisBroker, cfg config.OutboxConfig, l *logger.Logger, m *metrics.Metrics) (*worker.OutboxProcessor, error) {
	return worker.NewOutboxProcessor(stores.Outbox, broker, worker.OutboxProcessorConfig{
		BatchSize:      cfg.BatchSize,
		PollInterval:   cfg.PollInterval,
		MaxRetries:     cfg.MaxRetries,
		RetryDelay:     cfg.RetryDelay,
		Lease:          cfg.Lease,
		Retention:      cfg.Retention,
		DefaultChannel: cfg.DefaultChannel,
		Channels:       cfg.Channels,
	}, l.WithFields(map[string]interface{}{"component": "outbox"}), m)
}

// NewLogger builds the service logger and points the global zerolog logger
// used by the HTTP middleware at the same sink.
func NewLogger(cfg config.LogConfig) *logger.Logger {
	l := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Level),
		TimeFormat: time.RFC3339,
		JSON:       cfg.JSON,
	})
	zerolog.SetGlobalLevel(logger.ParseLevel(cfg.Level))
	log.Logger = l.Zerolog()
	return l
}
