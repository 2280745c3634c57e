package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository/memory"
	"github.com/jwalitptl/care-booking/pkg/logger"
	"github.com/jwalitptl/care-booking/pkg/messaging"
	"github.com/jwalitptl/care-booking/pkg/metrics"
)

type published struct {
	channel  string
	envelope messaging.Envelope
}

type fakeBroker struct {
	mu       sync.Mutex
	messages []published
	fail     error
}

func (b *fakeBroker) Publish(_ context.Context, channel string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	b.messages = append(b.messages, published{channel: channel, envelope: message.(messaging.Envelope)})
	return nil
}

func (b *fakeBroker) Close() error { return nil }

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func setup(t *testing.T, broker *fakeBroker) (*OutboxProcessor, *memory.OutboxRepository, *clock, *metrics.Metrics) {
	t.Helper()
	c := &clock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	store := memory.NewStore()
	store.SetClock(c.now)
	repo := store.Outbox()
	m := metrics.New("test", "worker")

	p, err := NewOutboxProcessor(repo, broker, OutboxProcessorConfig{
		BatchSize:      10,
		PollInterval:   time.Second,
		MaxRetries:     3,
		RetryDelay:     time.Minute,
		Lease:          30 * time.Second,
		Retention:      time.Hour,
		DefaultChannel: "care-booking.events",
		Channels:       map[string]string{"notification.intent": "notifications"},
	}, logger.Nop(), m)
	require.NoError(t, err)
	p.now = c.now
	return p, repo, c, m
}

func addEvent(t *testing.T, repo *memory.OutboxRepository, eventType string) *model.OutboxEvent {
	t.Helper()
	evt := &model.OutboxEvent{EventType: eventType, Payload: json.RawMessage(`{"template_key":"ticket.lab_fulfilled"}`)}
	require.NoError(t, repo.Create(context.Background(), evt))
	return evt
}

func TestProcessOncePublishesAndRoutes(t *testing.T) {
	broker := &fakeBroker{}
	p, repo, _, m := setup(t, broker)
	notif := addEvent(t, repo, "notification.intent")
	other := addEvent(t, repo, "booking.audit")

	n, err := p.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, broker.messages, 2)
	assert.Equal(t, "notifications", broker.messages[0].channel)
	assert.Equal(t, notif.ID.String(), broker.messages[0].envelope.ID)
	assert.Equal(t, "care-booking.events", broker.messages[1].channel)
	assert.Equal(t, other.ID.String(), broker.messages[1].envelope.ID)

	for _, e := range repo.Events() {
		assert.Equal(t, model.OutboxStatusProcessed, e.Status)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OutboxEventsProcessed))

	n, err = p.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFailedPublishRetriesThenDeadLetters(t *testing.T) {
	broker := &fakeBroker{fail: errors.New("redis down")}
	p, repo, c, m := setup(t, broker)
	evt := addEvent(t, repo, "notification.intent")
	ctx := context.Background()

	_, err := p.ProcessOnce(ctx)
	require.NoError(t, err)
	events := repo.Events()
	assert.Equal(t, model.OutboxStatusRetry, events[0].Status)
	assert.Equal(t, 1, events[0].RetryCount)
	require.NotNil(t, events[0].RetryAt)
	assert.Equal(t, c.now().Add(time.Minute), *events[0].RetryAt)

	// Not due yet.
	_, err = p.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.Events()[0].RetryCount)

	c.advance(time.Minute)
	_, err = p.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.Events()[0].RetryCount)

	c.advance(2 * time.Minute)
	_, err = p.ProcessOnce(ctx)
	require.NoError(t, err)

	dead := repo.DeadLetters()
	require.Len(t, dead, 1)
	assert.Equal(t, evt.ID, dead[0].ID)
	assert.Equal(t, model.OutboxStatusFailed, repo.Events()[0].Status)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.OutboxEventsFailed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxDeadLettered))

	broker.fail = nil
	c.advance(time.Hour)
	n, err := p.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLeaseExpiryReclaims(t *testing.T) {
	broker := &fakeBroker{}
	p, repo, c, _ := setup(t, broker)
	addEvent(t, repo, "notification.intent")
	ctx := context.Background()

	claimed, err := repo.ClaimPending(ctx, 10, 30*time.Second)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	n, err := p.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	c.advance(31 * time.Second)
	n, err = p.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCleanupRemovesOldProcessed(t *testing.T) {
	broker := &fakeBroker{}
	p, repo, c, _ := setup(t, broker)
	addEvent(t, repo, "notification.intent")
	ctx := context.Background()

	_, err := p.ProcessOnce(ctx)
	require.NoError(t, err)

	require.NoError(t, p.Cleanup(ctx))
	assert.Len(t, repo.Events(), 1)

	c.advance(2 * time.Hour)
	require.NoError(t, p.Cleanup(ctx))
	assert.Empty(t, repo.Events())
}

func TestNewOutboxProcessorValidatesConfig(t *testing.T) {
	_, err := NewOutboxProcessor(nil, &fakeBroker{}, OutboxProcessorConfig{}, logger.Nop(), nil)
	assert.Error(t, err)
}
