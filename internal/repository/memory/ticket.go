package memory

import (
	"context"
	"maps"

	"github.com/google/uuid"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
)

type TicketRepository struct{ s *Store }

func (r *TicketRepository) CreateWithTimeline(_ context.Context, t *model.Ticket, entry *model.TicketTimelineEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.tickets {
		if existing.Number == t.Number {
			return repository.ErrDuplicate
		}
		if t.AppointmentID != nil && existing.AppointmentID != nil && *existing.AppointmentID == *t.AppointmentID {
			return repository.ErrDuplicate
		}
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := r.s.now()
	t.CreatedAt, t.UpdatedAt = now, now
	stored := *t
	stored.Timeline, stored.Messages = nil, nil
	stored.Metadata = maps.Clone(t.Metadata)
	r.s.tickets[t.ID] = stored

	if entry != nil {
		r.s.appendEntry(t.ID, entry)
	}
	return nil
}

func (s *Store) appendEntry(ticketID uuid.UUID, entry *model.TicketTimelineEntry) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.TicketID = ticketID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	s.timeline[ticketID] = append(s.timeline[ticketID], *entry)
}

func (r *TicketRepository) GetByID(_ context.Context, id uuid.UUID) (*model.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return detach(t), nil
}

// detach copies a stored ticket so callers cannot mutate the store's metadata.
func detach(t model.Ticket) *model.Ticket {
	t.Metadata = maps.Clone(t.Metadata)
	return &t
}

func (r *TicketRepository) GetByAppointmentID(_ context.Context, appointmentID uuid.UUID) (*model.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, t := range r.s.tickets {
		if t.AppointmentID != nil && *t.AppointmentID == appointmentID {
			return detach(t), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *TicketRepository) Transition(_ context.Context, tr repository.TicketTransition) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tickets[tr.TicketID]
	if !ok {
		return repository.ErrNotFound
	}
	if t.Status != tr.From {
		return repository.ErrStaleState
	}
	if tr.AppointmentID != nil {
		if _, ok := r.s.appointments[*tr.AppointmentID]; !ok {
			return repository.ErrNotFound
		}
	}

	t.Status = tr.To
	if tr.PaymentStatus != nil {
		t.PaymentStatus = *tr.PaymentStatus
	}
	t.StampTerminal(tr.To, tr.At)
	t.UpdatedAt = tr.At
	r.s.tickets[t.ID] = t

	if tr.AppointmentID != nil {
		if err := r.s.updateAppointmentStatus(*tr.AppointmentID, nil, tr.AppointmentStatus, tr.CancelReason); err != nil {
			return err
		}
	}
	if tr.Entry != nil {
		r.s.appendEntry(t.ID, tr.Entry)
	}
	return nil
}

func (r *TicketRepository) AppendMessage(_ context.Context, msg *model.TicketMessage, entry *model.TicketTimelineEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tickets[msg.TicketID]; !ok {
		return repository.ErrForeignKey
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = r.s.now()
	}
	r.s.messages[msg.TicketID] = append(r.s.messages[msg.TicketID], *msg)
	if entry != nil {
		r.s.appendEntry(msg.TicketID, entry)
	}
	return nil
}

func (r *TicketRepository) ListTimeline(_ context.Context, ticketID uuid.UUID) ([]model.TicketTimelineEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]model.TicketTimelineEntry(nil), r.s.timeline[ticketID]...), nil
}

func (r *TicketRepository) ListMessages(_ context.Context, ticketID uuid.UUID) ([]model.TicketMessage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]model.TicketMessage(nil), r.s.messages[ticketID]...), nil
}
