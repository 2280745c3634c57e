package model

import (
	"time"

	"github.com/google/uuid"
)

type TicketType string

const (
	TicketTypeAppointment  TicketType = "appointment"
	TicketTypePrescription TicketType = "prescription"
	TicketTypeLabRequest   TicketType = "lab_request"
	TicketTypeReferral     TicketType = "referral"
)

type TicketStatus string

const (
	// appointment
	TicketStatusPending   TicketStatus = "pending"
	TicketStatusConfirmed TicketStatus = "confirmed"
	TicketStatusCompleted TicketStatus = "completed"
	TicketStatusCancelled TicketStatus = "cancelled"

	// prescription
	TicketStatusSentToPharmacy TicketStatus = "sent_to_pharmacy"
	TicketStatusProcessing     TicketStatus = "processing"
	TicketStatusReady          TicketStatus = "ready"
	TicketStatusCollected      TicketStatus = "collected"
	TicketStatusDispensed      TicketStatus = "dispensed"

	// lab_request
	TicketStatusSentToLab       TicketStatus = "sent_to_lab"
	TicketStatusSampleCollected TicketStatus = "sample_collected"
	TicketStatusFulfilled       TicketStatus = "fulfilled"

	// referral
	TicketStatusAccepted TicketStatus = "accepted"
	TicketStatusDeclined TicketStatus = "declined"
)

type TicketAction string

const (
	ActionConfirm         TicketAction = "confirm"
	ActionComplete        TicketAction = "complete"
	ActionCancel          TicketAction = "cancel"
	ActionStartProcessing TicketAction = "start_processing"
	ActionMarkReady       TicketAction = "mark_ready"
	ActionCollect         TicketAction = "collect"
	ActionDispense        TicketAction = "dispense"
	ActionCollectSample   TicketAction = "collect_sample"
	ActionFulfill         TicketAction = "fulfill"
	ActionAccept          TicketAction = "accept"
	ActionDecline         TicketAction = "decline"

	// timeline-only actions
	ActionCreated TicketAction = "created"
	ActionMessage TicketAction = "message"
)

type ActorRole string

const (
	RolePatient    ActorRole = "patient"
	RoleDoctor     ActorRole = "doctor"
	RoleClinic     ActorRole = "clinic"
	RolePharmacy   ActorRole = "pharmacy"
	RoleLaboratory ActorRole = "laboratory"
	RoleStaff      ActorRole = "staff"
	RoleSystem     ActorRole = "system"
)

// Actor is the authenticated party performing an operation. ProviderID is set
// for provider-side roles.
type Actor struct {
	UserID     uuid.UUID  `json:"user_id"`
	Role       ActorRole  `json:"role"`
	ProviderID *uuid.UUID `json:"provider_id,omitempty"`
	Locale     string     `json:"locale,omitempty"`
}

type Ticket struct {
	Base
	Number            string        `json:"ticket_number" db:"ticket_number"`
	Type              TicketType    `json:"type" db:"type"`
	Status            TicketStatus  `json:"status" db:"status"`
	PatientID         uuid.UUID     `json:"patient_id" db:"patient_id"`
	OrderingDoctorID  *uuid.UUID    `json:"ordering_doctor_id,omitempty" db:"ordering_doctor_id"`
	FulfillingPartyID *uuid.UUID    `json:"fulfilling_party_id,omitempty" db:"fulfilling_party_id"`
	AppointmentID     *uuid.UUID    `json:"appointment_id,omitempty" db:"appointment_id"`
	PaymentMethod     string        `json:"payment_method" db:"payment_method"`
	PaymentAmount     float64       `json:"payment_amount" db:"payment_amount"`
	PaymentStatus     PaymentStatus `json:"payment_status" db:"payment_status"`
	Metadata          JSONMap       `json:"metadata" db:"metadata"`

	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CollectedAt *time.Time `json:"collected_at,omitempty" db:"collected_at"`
	DispensedAt *time.Time `json:"dispensed_at,omitempty" db:"dispensed_at"`
	FulfilledAt *time.Time `json:"fulfilled_at,omitempty" db:"fulfilled_at"`
	DeclinedAt  *time.Time `json:"declined_at,omitempty" db:"declined_at"`

	Timeline []TicketTimelineEntry `json:"timeline,omitempty" db:"-"`
	Messages []TicketMessage       `json:"messages,omitempty" db:"-"`

	// Set on detail reads from the workflow table.
	Terminal         bool           `json:"terminal" db:"-"`
	AvailableActions []TicketAction `json:"available_actions,omitempty" db:"-"`
}

// StampTerminal sets the timestamp that belongs to status, if any.
func (t *Ticket) StampTerminal(status TicketStatus, at time.Time) {
	switch status {
	case TicketStatusCompleted:
		t.CompletedAt = &at
	case TicketStatusCancelled:
		t.CancelledAt = &at
	case TicketStatusCollected:
		t.CollectedAt = &at
	case TicketStatusDispensed:
		t.DispensedAt = &at
	case TicketStatusFulfilled:
		t.FulfilledAt = &at
	case TicketStatusDeclined:
		t.DeclinedAt = &at
	}
}

// TicketTimelineEntry is append-only.
type TicketTimelineEntry struct {
	ID            uuid.UUID    `json:"id" db:"id"`
	TicketID      uuid.UUID    `json:"ticket_id" db:"ticket_id"`
	Action        TicketAction `json:"action" db:"action"`
	DescriptionEn string       `json:"description_en" db:"description_en"`
	DescriptionAr string       `json:"description_ar" db:"description_ar"`
	ActorID       *uuid.UUID   `json:"actor_id,omitempty" db:"actor_id"`
	ActorRole     ActorRole    `json:"actor_role" db:"actor_role"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
}

// TicketMessage is append-only.
type TicketMessage struct {
	ID         uuid.UUID `json:"id" db:"id"`
	TicketID   uuid.UUID `json:"ticket_id" db:"ticket_id"`
	SenderID   uuid.UUID `json:"sender_id" db:"sender_id"`
	SenderRole ActorRole `json:"sender_role" db:"sender_role"`
	Body       string    `json:"body" db:"body"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
