// Package snapshot resolves the clinical snapshot stamped onto a booking from
// stored profiles and request-time overrides.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
)

// Result holds the primary snapshot and, for group bookings, every member's
// snapshot in request order.
type Result struct {
	Primary model.ClinicalSnapshot
	Members []model.ClinicalSnapshot
}

type Service struct {
	records repository.ClinicalRecordReader
	now     func() time.Time
}

func NewService(records repository.ClinicalRecordReader, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{records: records, now: now}
}

// ResolveFor loads the patient's own profile, or each named family member, and
// resolves their snapshots. A missing own profile yields an overrides-only
// snapshot; a missing family member is a validation error.
func (s *Service) ResolveFor(ctx context.Context, patientID uuid.UUID, memberIDs []uuid.UUID, overrides model.ClinicalOverrides) (*Result, error) {
	now := s.now()

	if len(memberIDs) == 0 {
		person := Person{}
		profile, err := s.records.GetPatientProfile(ctx, patientID)
		switch {
		case err == nil:
			person.FullName = profile.FullName
			person.Record = profile.ClinicalRecord
		case errors.Is(err, repository.ErrNotFound):
		default:
			return nil, fmt.Errorf("failed to load patient profile: %w", err)
		}
		return &Result{Primary: Resolve(person, overrides, now)}, nil
	}

	people := make([]Person, 0, len(memberIDs))
	for _, id := range memberIDs {
		member, err := s.records.GetFamilyMember(ctx, patientID, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewValidation(apperrors.KeyFamilyMember, map[string]string{"id": id.String()}, err)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load family member: %w", err)
		}
		memberID := member.ID
		people = append(people, Person{
			FamilyMemberID: &memberID,
			FullName:       member.FullName,
			Record:         member.ClinicalRecord,
		})
	}

	snapshots := ResolveGroup(people, overrides, now)
	res := &Result{Primary: snapshots[0]}
	if len(snapshots) > 1 {
		res.Members = snapshots
	}
	return res, nil
}
