// Package memory is an in-process implementation of the repository
// interfaces. It enforces the same uniqueness, foreign key and conditional
// update rules as the Postgres schema and backs local runs and service tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
)

type Store struct {
	mu sync.RWMutex

	providers     map[uuid.UUID]model.Provider
	doctors       map[uuid.UUID]uuid.UUID // legacy doctor id -> user id
	profiles      map[uuid.UUID]model.PatientProfile
	members       map[uuid.UUID]model.FamilyMember
	appointments  map[uuid.UUID]model.Appointment
	tickets       map[uuid.UUID]model.Ticket
	timeline      map[uuid.UUID][]model.TicketTimelineEntry
	messages      map[uuid.UUID][]model.TicketMessage
	outbox        map[uuid.UUID]model.OutboxEvent
	deadLetters   []model.OutboxEvent
	outboxOrdered []uuid.UUID

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		providers:    make(map[uuid.UUID]model.Provider),
		doctors:      make(map[uuid.UUID]uuid.UUID),
		profiles:     make(map[uuid.UUID]model.PatientProfile),
		members:      make(map[uuid.UUID]model.FamilyMember),
		appointments: make(map[uuid.UUID]model.Appointment),
		tickets:      make(map[uuid.UUID]model.Ticket),
		timeline:     make(map[uuid.UUID][]model.TicketTimelineEntry),
		messages:     make(map[uuid.UUID][]model.TicketMessage),
		outbox:       make(map[uuid.UUID]model.OutboxEvent),
		now:          time.Now,
	}
}

func (s *Store) Providers() *ProviderRepository       { return &ProviderRepository{s} }
func (s *Store) Appointments() *AppointmentRepository { return &AppointmentRepository{s} }
func (s *Store) Tickets() *TicketRepository           { return &TicketRepository{s} }
func (s *Store) Outbox() *OutboxRepository            { return &OutboxRepository{s} }

// SetClock replaces the clock used for timestamps and lease checks.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// RegisterLegacyDoctor records a doctor row owned by userID.
func (s *Store) RegisterLegacyDoctor(doctorID, userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doctors[doctorID] = userID
}

func (s *Store) GetPatientProfile(_ context.Context, userID uuid.UUID) (*model.PatientProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (s *Store) GetFamilyMember(_ context.Context, ownerUserID, memberID uuid.UUID) (*model.FamilyMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[memberID]
	if !ok || m.OwnerUserID != ownerUserID {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (s *Store) UpsertPatientProfile(_ context.Context, profile *model.PatientProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = *profile
	return nil
}

func (s *Store) CreateFamilyMember(_ context.Context, member *model.FamilyMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if member.ID == uuid.Nil {
		member.ID = uuid.New()
	}
	if _, ok := s.members[member.ID]; ok {
		return repository.ErrDuplicate
	}
	s.members[member.ID] = *member
	return nil
}

type ProviderRepository struct{ s *Store }

func (r *ProviderRepository) Create(_ context.Context, p *model.Provider) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := r.s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	r.s.providers[p.ID] = *p
	return nil
}

func (r *ProviderRepository) GetByID(_ context.Context, id uuid.UUID) (*model.Provider, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.providers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *ProviderRepository) GetByLegacyDoctorID(_ context.Context, doctorID uuid.UUID) (*model.Provider, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	userID, ok := r.s.doctors[doctorID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for _, p := range r.s.providers {
		if p.OwnerUserID != nil && *p.OwnerUserID == userID {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

type AppointmentRepository struct{ s *Store }

func sameProvider(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r *AppointmentRepository) findActive(patientID uuid.UUID, providerID *uuid.UUID, date, clock string) *uuid.UUID {
	for _, a := range r.s.appointments {
		if a.PatientID == patientID && a.Date == date && a.Time == clock &&
			sameProvider(a.ProviderID, providerID) && a.Status.Active() {
			id := a.ID
			return &id
		}
	}
	return nil
}

func (r *AppointmentRepository) Create(_ context.Context, a *model.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a.ProviderID != nil {
		if _, ok := r.s.providers[*a.ProviderID]; !ok {
			return repository.ErrForeignKey
		}
	}
	if r.findActive(a.PatientID, a.ProviderID, a.Date, a.Time) != nil {
		return repository.ErrDuplicate
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := r.s.now()
	a.CreatedAt, a.UpdatedAt = now, now
	r.s.appointments[a.ID] = *a
	return nil
}

func (r *AppointmentRepository) GetByID(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *AppointmentRepository) FindActiveDuplicate(_ context.Context, patientID uuid.UUID, providerID *uuid.UUID, date, clock string) (*uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.findActive(patientID, providerID, date, clock), nil
}

func (r *AppointmentRepository) UpdateStatus(_ context.Context, id uuid.UUID, from []model.AppointmentStatus, to model.AppointmentStatus, reason *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.updateAppointmentStatus(id, from, to, reason)
}

func (s *Store) updateAppointmentStatus(id uuid.UUID, from []model.AppointmentStatus, to model.AppointmentStatus, reason *string) error {
	a, ok := s.appointments[id]
	if !ok {
		return repository.ErrNotFound
	}
	if len(from) > 0 && !containsStatus(from, a.Status) {
		return repository.ErrStaleState
	}
	a.Status = to
	if reason != nil {
		a.CancelReason = reason
	}
	a.UpdatedAt = s.now()
	s.appointments[id] = a
	return nil
}

func containsStatus(list []model.AppointmentStatus, s model.AppointmentStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
