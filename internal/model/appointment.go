package model

import (
	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

// Active reports whether the appointment still holds its slot.
func (s AppointmentStatus) Active() bool {
	return s != AppointmentStatusCancelled
}

type PaymentStatus string

const (
	PaymentStatusUnpaid     PaymentStatus = "unpaid"
	PaymentStatusPaidCash   PaymentStatus = "paid_cash"
	PaymentStatusPaidOnline PaymentStatus = "paid_online"
)

type Appointment struct {
	Base
	PatientID         uuid.UUID         `json:"patient_id" db:"patient_id"`
	ProviderID        *uuid.UUID        `json:"provider_id,omitempty" db:"provider_id"`
	ProviderName      string            `json:"provider_name" db:"provider_name"`
	ProviderSpecialty string            `json:"provider_specialty" db:"provider_specialty"`
	FamilyMemberID    *uuid.UUID        `json:"family_member_id,omitempty" db:"family_member_id"`
	Date              string            `json:"date" db:"appointment_date"`
	Time              string            `json:"time" db:"appointment_time"`
	VisitType         string            `json:"visit_type" db:"visit_type"`
	PaymentMethod     string            `json:"payment_method" db:"payment_method"`
	PaymentAmount     float64           `json:"payment_amount" db:"payment_amount"`
	PaymentStatus     PaymentStatus     `json:"payment_status" db:"payment_status"`
	Status            AppointmentStatus `json:"status" db:"status"`
	CancelReason      *string           `json:"cancel_reason,omitempty" db:"cancel_reason"`
	Snapshot          ClinicalSnapshot  `json:"clinical_snapshot" db:"clinical_snapshot"`
}
