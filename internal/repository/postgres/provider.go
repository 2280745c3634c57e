package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/care-booking/internal/model"
)

const providerColumns = `
	p.id, p.owner_user_id, p.kind, p.display_name, p.specialty, p.locale,
	p.working_hours, p.unavailable_dates, p.auto_confirm, p.created_at, p.updated_at`

func (r *providerRepository) Create(ctx context.Context, p *model.Provider) error {
	query := `
		INSERT INTO providers (
			id, owner_user_id, kind, display_name, specialty, locale,
			working_hours, unavailable_dates, auto_confirm, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.OwnerUserID,
		p.Kind,
		p.DisplayName,
		p.Specialty,
		p.Locale,
		p.WorkingHours,
		p.UnavailableDates,
		p.AutoConfirm,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", translateError(err))
	}
	return nil
}

func (r *providerRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers p WHERE p.id = $1`

	var p model.Provider
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		return nil, fmt.Errorf("failed to get provider: %w", translateError(err))
	}
	return &p, nil
}

func (r *providerRepository) GetByLegacyDoctorID(ctx context.Context, doctorID uuid.UUID) (*model.Provider, error) {
	query := `
		SELECT ` + providerColumns + `
		FROM doctors d
		JOIN providers p ON p.owner_user_id = d.user_id
		WHERE d.id = $1
		ORDER BY p.created_at
		LIMIT 1
	`

	var p model.Provider
	if err := r.db.GetContext(ctx, &p, query, doctorID); err != nil {
		return nil, fmt.Errorf("failed to get provider by doctor: %w", translateError(err))
	}
	return &p, nil
}
