package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
)

type OutboxRepository struct{ s *Store }

func (r *OutboxRepository) Create(_ context.Context, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	now := r.s.now()
	event.CreatedAt, event.UpdatedAt = now, now
	if event.Status == "" {
		event.Status = model.OutboxStatusPending
	}
	r.s.outbox[event.ID] = *event
	r.s.outboxOrdered = append(r.s.outboxOrdered, event.ID)
	return nil
}

func (r *OutboxRepository) ClaimPending(_ context.Context, limit int, lease time.Duration) ([]*model.OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	var claimed []*model.OutboxEvent
	for _, id := range r.s.outboxOrdered {
		if len(claimed) >= limit {
			break
		}
		evt := r.s.outbox[id]
		due := evt.RetryAt == nil || !evt.RetryAt.After(now)
		switch evt.Status {
		case model.OutboxStatusPending, model.OutboxStatusRetry, model.OutboxStatusProcessing:
		default:
			continue
		}
		if evt.Status != model.OutboxStatusPending && !due {
			continue
		}
		leaseUntil := now.Add(lease)
		evt.Status = model.OutboxStatusProcessing
		evt.RetryAt = &leaseUntil
		evt.UpdatedAt = now
		r.s.outbox[id] = evt
		c := evt
		claimed = append(claimed, &c)
	}
	return claimed, nil
}

func (r *OutboxRepository) MarkProcessed(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	evt, ok := r.s.outbox[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := r.s.now()
	evt.Status = model.OutboxStatusProcessed
	evt.ProcessedAt = &now
	evt.RetryAt = nil
	evt.UpdatedAt = now
	r.s.outbox[id] = evt
	return nil
}

func (r *OutboxRepository) MarkRetry(_ context.Context, id uuid.UUID, retryCount int, retryAt time.Time, errorMessage string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	evt, ok := r.s.outbox[id]
	if !ok {
		return repository.ErrNotFound
	}
	evt.Status = model.OutboxStatusRetry
	evt.RetryCount = retryCount
	evt.RetryAt = &retryAt
	evt.ErrorMessage = &errorMessage
	evt.UpdatedAt = r.s.now()
	r.s.outbox[id] = evt
	return nil
}

func (r *OutboxRepository) MoveToDeadLetter(_ context.Context, event *model.OutboxEvent, errorMessage string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	evt, ok := r.s.outbox[event.ID]
	if !ok {
		return repository.ErrNotFound
	}
	evt.Status = model.OutboxStatusFailed
	evt.RetryCount = event.RetryCount
	evt.ErrorMessage = &errorMessage
	evt.UpdatedAt = r.s.now()
	r.s.outbox[event.ID] = evt
	r.s.deadLetters = append(r.s.deadLetters, evt)
	return nil
}

func (r *OutboxRepository) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var deleted int64
	kept := r.s.outboxOrdered[:0]
	for _, id := range r.s.outboxOrdered {
		evt := r.s.outbox[id]
		if evt.Status == model.OutboxStatusProcessed && evt.ProcessedAt != nil && evt.ProcessedAt.Before(before) {
			delete(r.s.outbox, id)
			deleted++
			continue
		}
		kept = append(kept, id)
	}
	r.s.outboxOrdered = kept
	return deleted, nil
}

// Events returns a copy of every outbox event in insertion order.
func (r *OutboxRepository) Events() []model.OutboxEvent {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]model.OutboxEvent, 0, len(r.s.outboxOrdered))
	for _, id := range r.s.outboxOrdered {
		out = append(out, r.s.outbox[id])
	}
	return out
}

// DeadLetters returns the dead-lettered events.
func (r *OutboxRepository) DeadLetters() []model.OutboxEvent {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]model.OutboxEvent(nil), r.s.deadLetters...)
}
