package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/care-booking/internal/repository"
)

// Guard detects an active booking for the same patient, provider and slot. A
// nil provider only matches provider-less bookings.
type Guard struct {
	appointments repository.AppointmentRepository
}

func NewGuard(appointments repository.AppointmentRepository) *Guard {
	return &Guard{appointments: appointments}
}

func (g *Guard) Exists(ctx context.Context, patientID uuid.UUID, providerID *uuid.UUID, date, clock string) (uuid.UUID, bool, error) {
	id, err := g.appointments.FindActiveDuplicate(ctx, patientID, providerID, date, clock)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to check duplicate booking: %w", err)
	}
	if id == nil {
		return uuid.Nil, false, nil
	}
	return *id, true, nil
}
