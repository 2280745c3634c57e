package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
	"github.com/jwalitptl/care-booking/pkg/logger"
	"github.com/jwalitptl/care-booking/pkg/messaging"
	"github.com/jwalitptl/care-booking/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// MaxRetries is the number of failed publishes after which an event is
	// dead-lettered.
	MaxRetries int
	// RetryDelay is multiplied by the retry count to schedule the next
	// attempt.
	RetryDelay time.Duration
	Lease      time.Duration
	// Retention is how long processed events are kept. Zero disables cleanup.
	Retention      time.Duration
	DefaultChannel string
	// Channels routes event types to broker channels.
	Channels map[string]string
}

type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) (*OutboxProcessor, error) {
	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be greater than 0")
	}
	if config.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return nil, fmt.Errorf("max retries must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		return nil, fmt.Errorf("retry delay must be greater than 0")
	}
	if config.Lease <= 0 {
		config.Lease = 30 * time.Second
	}
	if config.DefaultChannel == "" {
		config.DefaultChannel = "events"
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}, nil
}

// Start polls until ctx is cancelled.
func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor",
		"batch_size", p.config.BatchSize,
		"poll_interval", p.config.PollInterval.String())

	lastCleanup := p.now()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if _, err := p.ProcessOnce(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
			if p.config.Retention > 0 && p.now().Sub(lastCleanup) >= time.Hour {
				lastCleanup = p.now()
				if err := p.Cleanup(ctx); err != nil {
					p.logger.Error(err, "Failed to clean up processed events")
				}
			}
		}
	}
}

// ProcessOnce claims and publishes one batch. It returns the number of
// events published.
func (p *OutboxProcessor) ProcessOnce(ctx context.Context) (int, error) {
	defer p.metrics.BatchTimer()()

	events, err := p.repo.ClaimPending(ctx, p.config.BatchSize, p.config.Lease)
	if err != nil {
		p.metrics.DatabaseOperation("claim_pending_events", "error")
		return 0, fmt.Errorf("failed to claim pending events: %w", err)
	}
	p.metrics.DatabaseOperation("claim_pending_events", "success")

	published := 0
	for _, event := range events {
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Error(err, "Failed to process event",
				"event_id", event.ID.String(),
				"event_type", event.EventType,
				"retry_count", event.RetryCount)
			continue
		}
		published++
	}
	return published, nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	envelope := messaging.Envelope{
		ID:        event.ID.String(),
		Type:      event.EventType,
		Payload:   json.RawMessage(event.Payload),
		CreatedAt: event.CreatedAt.UTC().Format(time.RFC3339),
	}

	if err := p.broker.Publish(ctx, p.channelFor(event.EventType), envelope); err != nil {
		p.metrics.OutboxFailed(event.EventType)
		return p.handleFailure(ctx, event, err)
	}

	p.metrics.OutboxProcessed()
	if err := p.repo.MarkProcessed(ctx, event.ID); err != nil {
		p.metrics.DatabaseOperation("mark_processed", "error")
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

func (p *OutboxProcessor) handleFailure(ctx context.Context, event *model.OutboxEvent, cause error) error {
	event.RetryCount++
	msg := cause.Error()

	if event.RetryCount >= p.config.MaxRetries {
		p.metrics.OutboxDeadLetter()
		if err := p.repo.MoveToDeadLetter(ctx, event, msg); err != nil {
			return fmt.Errorf("failed to dead-letter event after %v: %w", cause, err)
		}
		return fmt.Errorf("event dead-lettered after %d attempts: %w", event.RetryCount, cause)
	}

	retryAt := p.now().Add(p.config.RetryDelay * time.Duration(event.RetryCount))
	if err := p.repo.MarkRetry(ctx, event.ID, event.RetryCount, retryAt, msg); err != nil {
		return fmt.Errorf("failed to schedule retry after %v: %w", cause, err)
	}
	return fmt.Errorf("publish failed, retry scheduled: %w", cause)
}

// Cleanup deletes processed events older than the retention window.
func (p *OutboxProcessor) Cleanup(ctx context.Context) error {
	if p.config.Retention <= 0 {
		return nil
	}
	deleted, err := p.repo.DeleteProcessedBefore(ctx, p.now().Add(-p.config.Retention))
	if err != nil {
		p.metrics.DatabaseOperation("delete_processed_events", "error")
		return fmt.Errorf("failed to delete processed events: %w", err)
	}
	p.metrics.DatabaseOperation("delete_processed_events", "success")
	if deleted > 0 {
		p.logger.Info("Deleted processed outbox events", "count", deleted)
	}
	return nil
}

func (p *OutboxProcessor) channelFor(eventType string) string {
	if ch, ok := p.config.Channels[eventType]; ok && ch != "" {
		return ch
	}
	return p.config.DefaultChannel
}
