package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
)

const ticketColumns = `
	id, ticket_number, type, status, patient_id, ordering_doctor_id, fulfilling_party_id,
	appointment_id, payment_method, payment_amount, payment_status, metadata,
	completed_at, cancelled_at, collected_at, dispensed_at, fulfilled_at, declined_at,
	created_at, updated_at`

// terminalColumns is the only source of column names interpolated into the
// transition update.
var terminalColumns = map[model.TicketStatus]string{
	model.TicketStatusCompleted: "completed_at",
	model.TicketStatusCancelled: "cancelled_at",
	model.TicketStatusCollected: "collected_at",
	model.TicketStatusDispensed: "dispensed_at",
	model.TicketStatusFulfilled: "fulfilled_at",
	model.TicketStatusDeclined:  "declined_at",
}

func (r *ticketRepository) CreateWithTimeline(ctx context.Context, t *model.Ticket, entry *model.TicketTimelineEntry) error {
	query := `
		INSERT INTO tickets (
			id, ticket_number, type, status, patient_id, ordering_doctor_id, fulfilling_party_id,
			appointment_id, payment_method, payment_amount, payment_status, metadata,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			t.ID,
			t.Number,
			t.Type,
			t.Status,
			t.PatientID,
			t.OrderingDoctorID,
			t.FulfillingPartyID,
			t.AppointmentID,
			t.PaymentMethod,
			t.PaymentAmount,
			t.PaymentStatus,
			t.Metadata,
			t.CreatedAt,
			t.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create ticket: %w", translateError(err))
		}
		if entry == nil {
			return nil
		}
		entry.TicketID = t.ID
		return insertTimelineEntry(ctx, tx, entry)
	})
}

func insertTimelineEntry(ctx context.Context, tx *sqlx.Tx, e *model.TicketTimelineEntry) error {
	query := `
		INSERT INTO ticket_timeline (
			id, ticket_id, action, description_en, description_ar, actor_id, actor_role, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := tx.ExecContext(ctx, query,
		e.ID, e.TicketID, e.Action, e.DescriptionEn, e.DescriptionAr, e.ActorID, e.ActorRole, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create timeline entry: %w", translateError(err))
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`

	var t model.Ticket
	if err := r.db.GetContext(ctx, &t, query, id); err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", translateError(err))
	}
	return &t, nil
}

func (r *ticketRepository) GetByAppointmentID(ctx context.Context, appointmentID uuid.UUID) (*model.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE appointment_id = $1`

	var t model.Ticket
	if err := r.db.GetContext(ctx, &t, query, appointmentID); err != nil {
		return nil, fmt.Errorf("failed to get ticket by appointment: %w", translateError(err))
	}
	return &t, nil
}

func (r *ticketRepository) Transition(ctx context.Context, tr repository.TicketTransition) error {
	stamp := ""
	if col, ok := terminalColumns[tr.To]; ok {
		stamp = ", " + col + " = $5"
	}
	query := `
		UPDATE tickets
		SET status = $3,
			payment_status = COALESCE($4, payment_status),
			updated_at = $5` + stamp + `
		WHERE id = $1 AND status = $2
	`

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, query, tr.TicketID, tr.From, tr.To, tr.PaymentStatus, tr.At)
		if err != nil {
			return fmt.Errorf("failed to transition ticket: %w", translateError(err))
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if rows == 0 {
			return repository.ErrStaleState
		}

		if tr.AppointmentID != nil {
			_, err := tx.ExecContext(ctx,
				`UPDATE appointments SET status = $1, updated_at = $2, cancel_reason = COALESCE($3, cancel_reason) WHERE id = $4`,
				tr.AppointmentStatus, tr.At, tr.CancelReason, *tr.AppointmentID)
			if err != nil {
				return fmt.Errorf("failed to mirror appointment status: %w", translateError(err))
			}
		}

		if tr.Entry == nil {
			return nil
		}
		tr.Entry.TicketID = tr.TicketID
		return insertTimelineEntry(ctx, tx, tr.Entry)
	})
}

func (r *ticketRepository) AppendMessage(ctx context.Context, msg *model.TicketMessage, entry *model.TicketTimelineEntry) error {
	query := `
		INSERT INTO ticket_messages (id, ticket_id, sender_id, sender_role, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query, msg.ID, msg.TicketID, msg.SenderID, msg.SenderRole, msg.Body, msg.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create ticket message: %w", translateError(err))
		}
		if entry == nil {
			return nil
		}
		entry.TicketID = msg.TicketID
		return insertTimelineEntry(ctx, tx, entry)
	})
}

func (r *ticketRepository) ListTimeline(ctx context.Context, ticketID uuid.UUID) ([]model.TicketTimelineEntry, error) {
	query := `
		SELECT id, ticket_id, action, description_en, description_ar, actor_id, actor_role, created_at
		FROM ticket_timeline
		WHERE ticket_id = $1
		ORDER BY created_at, id
	`
	var entries []model.TicketTimelineEntry
	if err := r.db.SelectContext(ctx, &entries, query, ticketID); err != nil {
		return nil, fmt.Errorf("failed to list ticket timeline: %w", translateError(err))
	}
	return entries, nil
}

func (r *ticketRepository) ListMessages(ctx context.Context, ticketID uuid.UUID) ([]model.TicketMessage, error) {
	query := `
		SELECT id, ticket_id, sender_id, sender_role, body, created_at
		FROM ticket_messages
		WHERE ticket_id = $1
		ORDER BY created_at, id
	`
	var msgs []model.TicketMessage
	if err := r.db.SelectContext(ctx, &msgs, query, ticketID); err != nil {
		return nil, fmt.Errorf("failed to list ticket messages: %w", translateError(err))
	}
	return msgs, nil
}
