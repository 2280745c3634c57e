// Package booking creates appointments: it resolves the provider, checks the
// slot against the provider's schedule and the patient's existing bookings,
// stamps a clinical snapshot, persists the appointment and then opens the
// appointment ticket and notifies both parties.
package booking

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
	"github.com/jwalitptl/care-booking/internal/service/availability"
	"github.com/jwalitptl/care-booking/internal/service/notification"
	"github.com/jwalitptl/care-booking/internal/service/snapshot"
	"github.com/jwalitptl/care-booking/internal/service/ticket"
	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
	"github.com/jwalitptl/care-booking/pkg/logger"
	"github.com/jwalitptl/care-booking/pkg/metrics"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// Outcome labels recorded on the bookings counter.
const (
	outcomeCreated  = "created"
	outcomeSchedule = "schedule_rejected"
	outcomeConflict = "conflict"
	outcomeInvalid  = "invalid"
	outcomeFailed   = "failed"
)

type Request struct {
	PatientID         uuid.UUID
	Locale            string
	ProviderID        string
	ProviderName      string
	ProviderSpecialty string
	Date              string
	Time              string
	VisitType         string
	PaymentMethod     string
	PaymentAmount     float64
	FamilyMemberIDs   []uuid.UUID
	Overrides         model.ClinicalOverrides
	CreateTicket      bool
}

type Result struct {
	Appointment  *model.Appointment `json:"appointment"`
	TicketNumber string             `json:"ticket_number,omitempty"`
}

// Tickets is the part of the ticket service bookings depend on.
type Tickets interface {
	CreateForAppointment(ctx context.Context, appt *model.Appointment, metadata model.JSONMap) (*model.Ticket, error)
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Ticket, error)
	Transition(ctx context.Context, ticketID uuid.UUID, req ticket.TransitionRequest) (*model.Ticket, error)
}

// Snapshots resolves the clinical snapshot for a booking.
type Snapshots interface {
	ResolveFor(ctx context.Context, patientID uuid.UUID, memberIDs []uuid.UUID, overrides model.ClinicalOverrides) (*snapshot.Result, error)
}

type Service struct {
	providers    repository.ProviderDirectory
	appointments repository.AppointmentRepository
	guard        *Guard
	tickets      Tickets
	snapshots    Snapshots
	notifier     notification.Notifier
	log          *logger.Logger
	metrics      *metrics.Metrics
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(providers repository.ProviderDirectory, appointments repository.AppointmentRepository, tickets Tickets, snapshots Snapshots, notifier notification.Notifier, opts ...Option) *Service {
	s := &Service{
		providers:    providers,
		appointments: appointments,
		guard:        NewGuard(appointments),
		tickets:      tickets,
		snapshots:    snapshots,
		notifier:     notifier,
		log:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBooking validates and persists one appointment. Every check runs
// before the write; the ticket and notifications after it are best effort.
func (s *Service) CreateBooking(ctx context.Context, req Request) (*Result, error) {
	if req.PatientID == uuid.Nil {
		return nil, apperrors.Unauthorized(nil)
	}

	date, clock, err := normalizeSlot(req.Date, req.Time)
	if err != nil {
		s.metrics.Booking(outcomeInvalid)
		return nil, err
	}

	provider, err := s.resolveProvider(ctx, req.ProviderID)
	if err != nil {
		s.metrics.Booking(outcomeFailed)
		return nil, err
	}

	var providerID *uuid.UUID
	name, specialty := req.ProviderName, req.ProviderSpecialty
	if provider != nil {
		id := provider.ID
		providerID = &id
		if provider.DisplayName != "" {
			name = provider.DisplayName
		}
		if provider.Specialty != "" {
			specialty = provider.Specialty
		}

		decision := availability.Validate(provider.WorkingHours, provider.UnavailableDates, date, clock)
		if !decision.Admitted {
			s.metrics.Booking(outcomeSchedule)
			return nil, scheduleError(decision)
		}
	} else {
		s.log.Warn("booking without resolved provider",
			"patient_id", req.PatientID.String(),
			"provider_ref", req.ProviderID,
			"provider_name", req.ProviderName)
	}

	if existing, found, err := s.guard.Exists(ctx, req.PatientID, providerID, date, clock); err != nil {
		s.metrics.Booking(outcomeFailed)
		return nil, err
	} else if found {
		s.metrics.Booking(outcomeConflict)
		return nil, apperrors.NewConflict(existing.String())
	}

	snap, err := s.snapshots.ResolveFor(ctx, req.PatientID, req.FamilyMemberIDs, req.Overrides)
	if err != nil {
		s.metrics.Booking(outcomeInvalid)
		return nil, err
	}

	status := model.AppointmentStatusPending
	if provider != nil && provider.AutoConfirm {
		status = model.AppointmentStatusConfirmed
	}
	appt := &model.Appointment{
		Base:              model.Base{ID: uuid.New()},
		PatientID:         req.PatientID,
		ProviderID:        providerID,
		ProviderName:      name,
		ProviderSpecialty: specialty,
		FamilyMemberID:    snap.Primary.FamilyMemberID,
		Date:              date,
		Time:              clock,
		VisitType:         req.VisitType,
		PaymentMethod:     req.PaymentMethod,
		PaymentAmount:     req.PaymentAmount,
		PaymentStatus:     model.PaymentStatusUnpaid,
		Status:            status,
		Snapshot:          snap.Primary,
	}
	if err := s.appointments.Create(ctx, appt); err != nil {
		s.metrics.Booking(outcomeFailed)
		return nil, s.persistenceError(ctx, req.PatientID, providerID, date, clock, err)
	}
	s.metrics.Booking(outcomeCreated)
	s.log.Info("appointment booked",
		"appointment_id", appt.ID.String(),
		"patient_id", appt.PatientID.String(),
		"status", string(appt.Status))

	res := &Result{Appointment: appt}
	if req.CreateTicket && s.tickets != nil {
		meta := model.JSONMap{ticket.MetaPatientLocale: apperrors.NormalizeLocale(req.Locale)}
		if len(snap.Members) > 0 {
			meta[ticket.MetaFamilyMembers] = snap.Members
		}
		if t, err := s.tickets.CreateForAppointment(ctx, appt, meta); err != nil {
			s.log.Error(err, "failed to create appointment ticket", "appointment_id", appt.ID.String())
		} else {
			res.TicketNumber = t.Number
		}
	}

	s.notifyBooked(ctx, appt, provider, req.Locale)
	return res, nil
}

func normalizeSlot(date, clock string) (string, string, error) {
	d, err := time.Parse("2006-01-02", strings.TrimSpace(date))
	if err != nil {
		return "", "", apperrors.NewValidation(apperrors.KeyInvalidRequest, map[string]string{"detail": "date must be YYYY-MM-DD"}, err)
	}
	c, err := time.Parse("15:04", strings.TrimSpace(clock))
	if err != nil {
		return "", "", apperrors.NewValidation(apperrors.KeyInvalidRequest, map[string]string{"detail": "time must be HH:MM"}, err)
	}
	return d.Format("2006-01-02"), c.Format("15:04"), nil
}

// resolveProvider looks the reference up as a provider id, then as a legacy
// doctor id. A reference that is not UUID shaped or matches neither yields
// no provider.
func (s *Service) resolveProvider(ctx context.Context, ref string) (*model.Provider, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if !uuidPattern.MatchString(ref) {
		return nil, nil
	}
	id, err := uuid.Parse(ref)
	if err != nil {
		return nil, nil
	}

	p, err := s.providers.GetByID(ctx, id)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}

	p, err = s.providers.GetByLegacyDoctorID(ctx, id)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to resolve legacy doctor: %w", err)
	}
	return nil, nil
}

func scheduleError(d availability.Decision) *apperrors.AppError {
	switch d.Reason {
	case availability.ReasonDateUnavailable:
		return apperrors.NewSchedule(apperrors.KeyDateUnavailable, map[string]string{"date": d.Date})
	case availability.ReasonClosedDay:
		return apperrors.NewSchedule(apperrors.KeyClosedDay, map[string]string{"day": d.Day, "date": d.Date})
	default:
		return apperrors.NewSchedule(apperrors.KeyOutsideHours, map[string]string{"open": d.Open, "close": d.Close, "day": d.Day})
	}
}

func (s *Service) persistenceError(ctx context.Context, patientID uuid.UUID, providerID *uuid.UUID, date, clock string, err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		// Lost the race to a concurrent identical booking.
		if existing, found, qerr := s.guard.Exists(ctx, patientID, providerID, date, clock); qerr == nil && found {
			return apperrors.NewConflict(existing.String())
		}
		return apperrors.NewPersistence(apperrors.KeyBookingFailed, http.StatusInternalServerError, err)
	case errors.Is(err, repository.ErrForeignKey):
		return apperrors.NewPersistence(apperrors.KeyChooseProvider, http.StatusBadRequest, err)
	}
	s.log.Error(err, "failed to persist appointment", "patient_id", patientID.String())
	return apperrors.NewPersistence(apperrors.KeyBookingFailed, http.StatusInternalServerError, err)
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("appointment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return appt, nil
}

// CancelAppointment cancels a pending or confirmed appointment owned by the
// patient. A linked appointment ticket is cancelled through its workflow,
// which mirrors the status onto the appointment.
func (s *Service) CancelAppointment(ctx context.Context, patientID, appointmentID uuid.UUID, reason string) (*model.Appointment, error) {
	if patientID == uuid.Nil {
		return nil, apperrors.Unauthorized(nil)
	}
	appt, err := s.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.PatientID != patientID {
		return nil, apperrors.NewForbidden("", nil, nil)
	}
	if appt.Status != model.AppointmentStatusPending && appt.Status != model.AppointmentStatusConfirmed {
		return nil, apperrors.NewValidation(apperrors.KeyNotCancellable, map[string]string{"status": string(appt.Status)}, nil)
	}
	reason = strings.TrimSpace(reason)

	cancelled, err := s.cancelViaTicket(ctx, appt, reason)
	if err != nil {
		return nil, err
	}
	if !cancelled {
		var why *string
		if reason != "" {
			why = &reason
		}
		from := []model.AppointmentStatus{model.AppointmentStatusPending, model.AppointmentStatusConfirmed}
		if err := s.appointments.UpdateStatus(ctx, appt.ID, from, model.AppointmentStatusCancelled, why); err != nil {
			if errors.Is(err, repository.ErrStaleState) {
				return nil, apperrors.NewValidation(apperrors.KeyNotCancellable, map[string]string{"status": string(appt.Status)}, err)
			}
			return nil, fmt.Errorf("failed to cancel appointment: %w", err)
		}
	}

	updated, err := s.GetAppointment(ctx, appt.ID)
	if err != nil {
		return nil, err
	}
	s.log.Info("appointment cancelled", "appointment_id", appt.ID.String())
	s.notifyCancelled(ctx, updated)
	return updated, nil
}

func (s *Service) cancelViaTicket(ctx context.Context, appt *model.Appointment, reason string) (bool, error) {
	if s.tickets == nil {
		return false, nil
	}
	t, err := s.tickets.GetByAppointment(ctx, appt.ID)
	if apperrors.HasCode(err, apperrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, ok := ticket.Lookup(t.Type, t.Status, model.ActionCancel); !ok {
		return false, nil
	}
	_, err = s.tickets.Transition(ctx, t.ID, ticket.TransitionRequest{
		Action: model.ActionCancel,
		Actor:  model.Actor{UserID: appt.PatientID, Role: model.RolePatient},
		Note:   reason,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) notifyBooked(ctx context.Context, appt *model.Appointment, provider *model.Provider, locale string) {
	params := map[string]string{
		"provider": appt.ProviderName,
		"patient":  appt.Snapshot.FullName,
		"date":     appt.Date,
		"time":     appt.Time,
	}
	if params["patient"] == "" {
		params["patient"] = "A patient"
	}
	meta := model.JSONMap{"appointment_id": appt.ID.String()}
	link := notification.AppointmentLink(appt.ID)

	template := notification.TemplateBookingPendingPatient
	if appt.Status == model.AppointmentStatusConfirmed {
		template = notification.TemplateBookingConfirmedPatient
	}
	s.send(ctx, notification.Build(appt.PatientID, locale, template, link, params, meta))

	if provider != nil && provider.OwnerUserID != nil {
		s.send(ctx, notification.Build(*provider.OwnerUserID, provider.Locale,
			notification.TemplateBookingCreatedProvider, link, params, meta))
	}
}

func (s *Service) notifyCancelled(ctx context.Context, appt *model.Appointment) {
	if appt.ProviderID == nil {
		return
	}
	p, err := s.providers.GetByID(ctx, *appt.ProviderID)
	if err != nil || p.OwnerUserID == nil {
		return
	}
	params := map[string]string{"date": appt.Date, "time": appt.Time}
	s.send(ctx, notification.Build(*p.OwnerUserID, p.Locale, notification.TemplateBookingCancelled,
		notification.AppointmentLink(appt.ID), params, model.JSONMap{"appointment_id": appt.ID.String()}))
}

func (s *Service) send(ctx context.Context, intent model.NotificationIntent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, intent); err != nil {
		s.metrics.NotificationDropped(intent.TemplateKey)
		s.log.Error(err, "failed to enqueue notification",
			"recipient", intent.RecipientUserID.String(),
			"template", intent.TemplateKey)
	}
}
