package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/care-booking/internal/model"
)

// Nullable text columns are coalesced so they scan into plain strings.
const clinicalColumns = `
	COALESCE(date_of_birth::text, '') AS date_of_birth,
	COALESCE(gender, '') AS gender,
	COALESCE(blood_type, '') AS blood_type,
	allergies, chronic_conditions, current_medications, height, weight`

func nullableDate(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableText(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func (r *clinicalRecordRepository) GetPatientProfile(ctx context.Context, userID uuid.UUID) (*model.PatientProfile, error) {
	query := `
		SELECT user_id, full_name, locale, ` + clinicalColumns + `
		FROM patient_profiles
		WHERE user_id = $1
	`
	var p model.PatientProfile
	if err := r.db.GetContext(ctx, &p, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get patient profile: %w", translateError(err))
	}
	return &p, nil
}

func (r *clinicalRecordRepository) GetFamilyMember(ctx context.Context, ownerUserID, memberID uuid.UUID) (*model.FamilyMember, error) {
	query := `
		SELECT id, owner_user_id, full_name, relationship, ` + clinicalColumns + `
		FROM family_members
		WHERE id = $1 AND owner_user_id = $2
	`
	var m model.FamilyMember
	if err := r.db.GetContext(ctx, &m, query, memberID, ownerUserID); err != nil {
		return nil, fmt.Errorf("failed to get family member: %w", translateError(err))
	}
	return &m, nil
}

func (r *clinicalRecordRepository) UpsertPatientProfile(ctx context.Context, p *model.PatientProfile) error {
	query := `
		INSERT INTO patient_profiles (
			user_id, full_name, locale, date_of_birth, gender, blood_type,
			allergies, chronic_conditions, current_medications, height, weight, updated_at
		) VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			locale = EXCLUDED.locale,
			date_of_birth = EXCLUDED.date_of_birth,
			gender = EXCLUDED.gender,
			blood_type = EXCLUDED.blood_type,
			allergies = EXCLUDED.allergies,
			chronic_conditions = EXCLUDED.chronic_conditions,
			current_medications = EXCLUDED.current_medications,
			height = EXCLUDED.height,
			weight = EXCLUDED.weight,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		p.UserID,
		p.FullName,
		p.Locale,
		nullableDate(p.DateOfBirth),
		nullableText(p.Gender),
		nullableText(p.BloodType),
		p.Allergies,
		p.ChronicConditions,
		p.CurrentMedications,
		p.Height,
		p.Weight,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert patient profile: %w", translateError(err))
	}
	return nil
}

func (r *clinicalRecordRepository) CreateFamilyMember(ctx context.Context, m *model.FamilyMember) error {
	query := `
		INSERT INTO family_members (
			id, owner_user_id, full_name, relationship, date_of_birth, gender, blood_type,
			allergies, chronic_conditions, current_medications, height, weight, created_at
		) VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := r.db.ExecContext(ctx, query,
		m.ID,
		m.OwnerUserID,
		m.FullName,
		m.Relationship,
		nullableDate(m.DateOfBirth),
		nullableText(m.Gender),
		nullableText(m.BloodType),
		m.Allergies,
		m.ChronicConditions,
		m.CurrentMedications,
		m.Height,
		m.Weight,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to create family member: %w", translateError(err))
	}
	return nil
}
