package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/care-booking/internal/model"
)

// Each interface is a narrow capability; services receive only the ones they
// use.
type (
	ProviderDirectory interface {
		GetByID(ctx context.Context, id uuid.UUID) (*model.Provider, error)
		// GetByLegacyDoctorID resolves a doctor row to the provider owned by
		// the same user.
		GetByLegacyDoctorID(ctx context.Context, doctorID uuid.UUID) (*model.Provider, error)
	}

	ProviderWriter interface {
		Create(ctx context.Context, provider *model.Provider) error
	}

	ClinicalRecordReader interface {
		GetPatientProfile(ctx context.Context, userID uuid.UUID) (*model.PatientProfile, error)
		GetFamilyMember(ctx context.Context, ownerUserID, memberID uuid.UUID) (*model.FamilyMember, error)
	}

	ClinicalRecordWriter interface {
		UpsertPatientProfile(ctx context.Context, profile *model.PatientProfile) error
		CreateFamilyMember(ctx context.Context, member *model.FamilyMember) error
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		// FindActiveDuplicate returns the id of a non-cancelled appointment
		// for the same patient, provider, date and time. A nil providerID
		// matches only provider-less appointments.
		FindActiveDuplicate(ctx context.Context, patientID uuid.UUID, providerID *uuid.UUID, date, time string) (*uuid.UUID, error)
		// UpdateStatus changes status only when the current status is one of
		// from. ErrStaleState is returned otherwise.
		UpdateStatus(ctx context.Context, id uuid.UUID, from []model.AppointmentStatus, to model.AppointmentStatus, reason *string) error
	}

	TicketRepository interface {
		// CreateWithTimeline inserts the ticket and its first timeline entry
		// in one transaction.
		CreateWithTimeline(ctx context.Context, ticket *model.Ticket, entry *model.TicketTimelineEntry) error
		GetByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error)
		GetByAppointmentID(ctx context.Context, appointmentID uuid.UUID) (*model.Ticket, error)
		// Transition applies a conditional status change keyed by the
		// expected current status. ErrStaleState means another writer won.
		Transition(ctx context.Context, t TicketTransition) error
		AppendMessage(ctx context.Context, msg *model.TicketMessage, entry *model.TicketTimelineEntry) error
		ListTimeline(ctx context.Context, ticketID uuid.UUID) ([]model.TicketTimelineEntry, error)
		ListMessages(ctx context.Context, ticketID uuid.UUID) ([]model.TicketMessage, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ClaimPending leases up to limit due events. A claimed event that is
		// not settled before lease expires becomes claimable again.
		ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkRetry(ctx context.Context, id uuid.UUID, retryCount int, retryAt time.Time, errorMessage string) error
		MoveToDeadLetter(ctx context.Context, event *model.OutboxEvent, errorMessage string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)

// TicketTransition describes one state machine step. Appointment mirroring is
// applied in the same transaction when AppointmentID is set.
type TicketTransition struct {
	TicketID          uuid.UUID
	From              model.TicketStatus
	To                model.TicketStatus
	PaymentStatus     *model.PaymentStatus
	At                time.Time
	Entry             *model.TicketTimelineEntry
	AppointmentID     *uuid.UUID
	AppointmentStatus model.AppointmentStatus
	CancelReason      *string
}
