package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
)

const appointmentColumns = `
	id, patient_id, provider_id, provider_name, provider_specialty, family_member_id,
	appointment_date::text AS appointment_date,
	to_char(appointment_time, 'HH24:MI') AS appointment_time,
	visit_type, payment_method, payment_amount, payment_status, status,
	cancel_reason, clinical_snapshot, created_at, updated_at`

func (r *appointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, patient_id, provider_id, provider_name, provider_specialty, family_member_id,
			appointment_date, appointment_time, visit_type,
			payment_method, payment_amount, payment_status, status,
			clinical_snapshot, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7::date, $8::time, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.PatientID,
		a.ProviderID,
		a.ProviderName,
		a.ProviderSpecialty,
		a.FamilyMemberID,
		a.Date,
		a.Time,
		a.VisitType,
		a.PaymentMethod,
		a.PaymentAmount,
		a.PaymentStatus,
		a.Status,
		a.Snapshot,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", translateError(err))
	}
	return nil
}

func (r *appointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var a model.Appointment
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", translateError(err))
	}
	return &a, nil
}

func (r *appointmentRepository) FindActiveDuplicate(ctx context.Context, patientID uuid.UUID, providerID *uuid.UUID, date, clock string) (*uuid.UUID, error) {
	query := `
		SELECT id
		FROM appointments
		WHERE patient_id = $1
		AND provider_id IS NOT DISTINCT FROM $2::uuid
		AND appointment_date = $3::date
		AND appointment_time = $4::time
		AND status <> 'cancelled'
		ORDER BY created_at
		LIMIT 1
	`
	var id uuid.UUID
	err := r.db.GetContext(ctx, &id, query, patientID, providerID, date, clock)
	if err != nil {
		err = translateError(err)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check duplicate appointment: %w", err)
	}
	return &id, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from []model.AppointmentStatus, to model.AppointmentStatus, reason *string) error {
	query := `
		UPDATE appointments
		SET status = $1, cancel_reason = COALESCE($2, cancel_reason), updated_at = $3
		WHERE id = $4 AND status = ANY($5)
	`
	statuses := make(pq.StringArray, 0, len(from))
	for _, s := range from {
		statuses = append(statuses, string(s))
	}

	result, err := r.db.ExecContext(ctx, query, to, reason, time.Now(), id, statuses)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", translateError(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return repository.ErrStaleState
	}
	return nil
}
