// Package ticket runs the clinical ticket workflows: appointment, prescription,
// lab request and referral tickets move through an explicit transition table,
// every step writes one timeline entry, and patients are notified of the
// steps they care about.
package ticket

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
	"github.com/jwalitptl/care-booking/internal/service/notification"
	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
	"github.com/jwalitptl/care-booking/pkg/logger"
	"github.com/jwalitptl/care-booking/pkg/metrics"
)

// maxNumberAttempts bounds ticket number regeneration after a collision.
const maxNumberAttempts = 3

// Metadata keys written on tickets.
const (
	MetaPatientLocale = "patient_locale"
	MetaFamilyMembers = "family_members"
	MetaAppointmentID = "appointment_id"
)

type TransitionRequest struct {
	Action      model.TicketAction
	Actor       model.Actor
	Note        string
	ConfirmCash bool
}

type CreateRequest struct {
	Type              model.TicketType
	PatientID         uuid.UUID
	OrderingDoctorID  *uuid.UUID
	FulfillingPartyID *uuid.UUID
	PaymentMethod     string
	PaymentAmount     float64
	Metadata          model.JSONMap
	Note              string
}

type Service struct {
	tickets   repository.TicketRepository
	providers repository.ProviderDirectory
	notifier  notification.Notifier
	numbers   *NumberGenerator
	log       *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(tickets repository.TicketRepository, providers repository.ProviderDirectory, notifier notification.Notifier, numbers *NumberGenerator, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		tickets:   tickets,
		providers: providers,
		notifier:  notifier,
		numbers:   numbers,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.numbers == nil {
		s.numbers = NewNumberGenerator("", s.now)
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	return s
}

// CanAct reports whether actor is a party to t.
func CanAct(t *model.Ticket, actor model.Actor) bool {
	switch actor.Role {
	case model.RoleStaff, model.RoleSystem:
		return true
	case model.RolePatient:
		return actor.UserID == t.PatientID
	}
	if actor.ProviderID == nil {
		return false
	}
	return sameID(t.FulfillingPartyID, *actor.ProviderID) || sameID(t.OrderingDoctorID, *actor.ProviderID)
}

func sameID(a *uuid.UUID, b uuid.UUID) bool {
	return a != nil && *a == b
}

func (s *Service) GetTicket(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Timeline, err = s.tickets.ListTimeline(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to list ticket timeline: %w", err)
	}
	if t.Messages, err = s.tickets.ListMessages(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to list ticket messages: %w", err)
	}
	t.Terminal = IsTerminal(t.Type, t.Status)
	t.AvailableActions = Actions(t.Type, t.Status)
	return t, nil
}

// GetByAppointment returns the ticket linked to an appointment.
func (s *Service) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Ticket, error) {
	t, err := s.tickets.GetByAppointmentID(ctx, appointmentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("ticket", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return t, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	t, err := s.tickets.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("ticket", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return t, nil
}

// Transition applies req.Action to the ticket. The status change, terminal
// timestamp, payment confirmation, timeline entry and appointment mirror
// commit together; notifications follow the commit.
func (s *Service) Transition(ctx context.Context, ticketID uuid.UUID, req TransitionRequest) (*model.Ticket, error) {
	t, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	edge, err := s.apply(ctx, t, req)
	if err != nil {
		return nil, err
	}
	if edge.Notify != "" {
		s.notifyPatient(ctx, t, edge.Notify)
	}
	return t, nil
}

// apply validates and commits one edge against t and updates t in place. It
// sends no notifications.
func (s *Service) apply(ctx context.Context, t *model.Ticket, req TransitionRequest) (Edge, error) {
	edge, ok := Lookup(t.Type, t.Status, req.Action)
	if !ok {
		s.metrics.Transition(string(t.Type), string(req.Action), "illegal")
		return Edge{}, apperrors.NewIllegalTransition(string(t.Status), string(req.Action), false)
	}
	if !edge.allows(req.Actor.Role) || !CanAct(t, req.Actor) {
		s.metrics.Transition(string(t.Type), string(req.Action), "forbidden")
		return Edge{}, apperrors.NewForbidden(apperrors.KeyRoleNotAllowed, map[string]string{"action": string(req.Action)}, nil)
	}
	if req.ConfirmCash && !allowsCash(t.Type, req.Action) {
		return Edge{}, apperrors.NewValidation(apperrors.KeyCashNotAllowed, nil, nil)
	}

	at := s.now()
	note := strings.TrimSpace(req.Note)
	en, ar := describe(req.Action, note)
	tr := repository.TicketTransition{
		TicketID: t.ID,
		From:     t.Status,
		To:       edge.To,
		At:       at,
		Entry: &model.TicketTimelineEntry{
			Action:        req.Action,
			DescriptionEn: en,
			DescriptionAr: ar,
			ActorID:       actorID(req.Actor),
			ActorRole:     req.Actor.Role,
			CreatedAt:     at,
		},
	}
	if req.ConfirmCash {
		paid := model.PaymentStatusPaidCash
		tr.PaymentStatus = &paid
	}
	if t.Type == model.TicketTypeAppointment && t.AppointmentID != nil {
		if status, ok := appointmentStatusFor(edge.To); ok {
			tr.AppointmentID = t.AppointmentID
			tr.AppointmentStatus = status
			if edge.To == model.TicketStatusCancelled && note != "" {
				tr.CancelReason = &note
			}
		}
	}

	if err := s.tickets.Transition(ctx, tr); err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleState):
			s.metrics.Transition(string(t.Type), string(req.Action), "stale")
			return Edge{}, apperrors.NewIllegalTransition(string(t.Status), string(req.Action), true)
		case errors.Is(err, repository.ErrNotFound):
			return Edge{}, apperrors.NewNotFound("ticket", err)
		}
		s.metrics.Transition(string(t.Type), string(req.Action), "error")
		return Edge{}, fmt.Errorf("failed to transition ticket: %w", err)
	}
	s.metrics.Transition(string(t.Type), string(req.Action), "ok")

	t.Status = edge.To
	if tr.PaymentStatus != nil {
		t.PaymentStatus = *tr.PaymentStatus
	}
	t.StampTerminal(edge.To, at)
	t.UpdatedAt = at
	if t.Timeline != nil {
		t.Timeline = append(t.Timeline, *tr.Entry)
	}

	s.log.Info("ticket transitioned",
		"ticket_id", t.ID.String(),
		"ticket_number", t.Number,
		"from", string(tr.From),
		"to", string(tr.To),
		"actor_role", string(req.Actor.Role))
	return edge, nil
}

// AppendMessage posts a message on the ticket at any status and records it on
// the timeline.
func (s *Service) AppendMessage(ctx context.Context, ticketID uuid.UUID, actor model.Actor, body string) (*model.TicketMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidation(apperrors.KeyEmptyMessage, nil, nil)
	}
	t, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !CanAct(t, actor) {
		return nil, apperrors.NewForbidden("", nil, nil)
	}

	at := s.now()
	en, ar := describe(model.ActionMessage, "")
	msg := &model.TicketMessage{
		ID:         uuid.New(),
		TicketID:   t.ID,
		SenderID:   actor.UserID,
		SenderRole: actor.Role,
		Body:       body,
		CreatedAt:  at,
	}
	entry := &model.TicketTimelineEntry{
		Action:        model.ActionMessage,
		DescriptionEn: en,
		DescriptionAr: ar,
		ActorID:       actorID(actor),
		ActorRole:     actor.Role,
		CreatedAt:     at,
	}
	if err := s.tickets.AppendMessage(ctx, msg, entry); err != nil {
		if errors.Is(err, repository.ErrForeignKey) {
			return nil, apperrors.NewNotFound("ticket", err)
		}
		return nil, fmt.Errorf("failed to append ticket message: %w", err)
	}

	if actor.Role == model.RolePatient {
		s.notifyProvider(ctx, t, t.FulfillingPartyID, notification.TemplateTicketMessage)
	} else {
		s.notifyPatient(ctx, t, notification.TemplateTicketMessage)
	}
	return msg, nil
}

// CreateTicket opens a prescription, lab request or referral ticket on behalf
// of a provider.
func (s *Service) CreateTicket(ctx context.Context, actor model.Actor, req CreateRequest) (*model.Ticket, error) {
	switch actor.Role {
	case model.RolePatient, model.RoleSystem, "":
		return nil, apperrors.NewForbidden(apperrors.KeyRoleNotAllowed, map[string]string{"action": "create"}, nil)
	}
	if req.Type == model.TicketTypeAppointment || !KnownType(req.Type) {
		return nil, apperrors.NewValidation(apperrors.KeyUnknownTicketType, map[string]string{"type": string(req.Type)}, nil)
	}
	if req.PatientID == uuid.Nil {
		return nil, apperrors.NewValidation(apperrors.KeyInvalidRequest, map[string]string{"detail": "patient_id is required"}, nil)
	}

	ordering := req.OrderingDoctorID
	if actor.Role != model.RoleStaff {
		ordering = actor.ProviderID
	}
	if req.FulfillingPartyID != nil {
		if _, err := s.providers.GetByID(ctx, *req.FulfillingPartyID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NewValidation(apperrors.KeyInvalidRequest, map[string]string{"detail": "unknown fulfilling party"}, err)
			}
			return nil, fmt.Errorf("failed to resolve fulfilling party: %w", err)
		}
	}

	status, _ := InitialStatus(req.Type)
	meta := model.JSONMap{}
	for k, v := range req.Metadata {
		meta[k] = v
	}
	t := &model.Ticket{
		Type:              req.Type,
		Status:            status,
		PatientID:         req.PatientID,
		OrderingDoctorID:  ordering,
		FulfillingPartyID: req.FulfillingPartyID,
		PaymentMethod:     req.PaymentMethod,
		PaymentAmount:     req.PaymentAmount,
		PaymentStatus:     model.PaymentStatusUnpaid,
		Metadata:          meta,
	}
	if err := s.create(ctx, t, actor, strings.TrimSpace(req.Note)); err != nil {
		return nil, err
	}

	s.notifyProvider(ctx, t, t.FulfillingPartyID, notification.TemplateTicketReceived)
	s.notifyPatient(ctx, t, notification.TemplateTicketReceived)
	return t, nil
}

// CreateForAppointment opens the appointment ticket for a new booking. The
// ticket always starts pending; an auto-confirmed appointment then takes the
// confirm edge as the system actor so the timeline records it.
func (s *Service) CreateForAppointment(ctx context.Context, appt *model.Appointment, metadata model.JSONMap) (*model.Ticket, error) {
	meta := model.JSONMap{MetaAppointmentID: appt.ID.String()}
	for k, v := range metadata {
		meta[k] = v
	}
	apptID := appt.ID
	t := &model.Ticket{
		Type:              model.TicketTypeAppointment,
		Status:            model.TicketStatusPending,
		PatientID:         appt.PatientID,
		FulfillingPartyID: appt.ProviderID,
		AppointmentID:     &apptID,
		PaymentMethod:     appt.PaymentMethod,
		PaymentAmount:     appt.PaymentAmount,
		PaymentStatus:     appt.PaymentStatus,
		Metadata:          meta,
	}
	actor := model.Actor{UserID: appt.PatientID, Role: model.RolePatient}
	if err := s.create(ctx, t, actor, ""); err != nil {
		return nil, err
	}
	if appt.Status == model.AppointmentStatusConfirmed {
		// The booking flow sends its own confirmed notice.
		req := TransitionRequest{Action: model.ActionConfirm, Actor: model.Actor{Role: model.RoleSystem}}
		if _, err := s.apply(ctx, t, req); err != nil {
			return nil, fmt.Errorf("failed to auto-confirm ticket: %w", err)
		}
	}
	return t, nil
}

func (s *Service) create(ctx context.Context, t *model.Ticket, actor model.Actor, note string) error {
	en, ar := describe(model.ActionCreated, note)
	var err error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		at := s.now()
		t.ID = uuid.New()
		t.Number = s.numbers.Next()
		t.CreatedAt, t.UpdatedAt = at, at
		entry := &model.TicketTimelineEntry{
			Action:        model.ActionCreated,
			DescriptionEn: en,
			DescriptionAr: ar,
			ActorID:       actorID(actor),
			ActorRole:     actor.Role,
			CreatedAt:     at,
		}
		err = s.tickets.CreateWithTimeline(ctx, t, entry)
		if err == nil {
			t.Timeline = []model.TicketTimelineEntry{*entry}
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("failed to create ticket: %w", err)
		}
		s.log.Warn("ticket number collision", "ticket_number", t.Number, "attempt", attempt+1)
	}
	return fmt.Errorf("failed to create ticket after %d attempts: %w", maxNumberAttempts, err)
}

func (s *Service) notifyPatient(ctx context.Context, t *model.Ticket, template string) {
	locale, _ := t.Metadata[MetaPatientLocale].(string)
	s.send(ctx, t, t.PatientID, locale, template)
}

func (s *Service) notifyProvider(ctx context.Context, t *model.Ticket, providerID *uuid.UUID, template string) {
	if providerID == nil {
		return
	}
	p, err := s.providers.GetByID(ctx, *providerID)
	if err != nil {
		s.log.Warn("notification recipient unresolved", "provider_id", providerID.String(), "error", err.Error())
		return
	}
	if p.OwnerUserID == nil {
		return
	}
	s.send(ctx, t, *p.OwnerUserID, p.Locale, template)
}

func (s *Service) send(ctx context.Context, t *model.Ticket, recipient uuid.UUID, locale, template string) {
	if s.notifier == nil {
		return
	}
	intent := notification.Build(recipient, locale, template, notification.TicketLink(t.ID),
		map[string]string{"number": t.Number, "type": string(t.Type)},
		model.JSONMap{"ticket_id": t.ID.String(), "ticket_number": t.Number})
	if err := s.notifier.Notify(ctx, intent); err != nil {
		s.metrics.NotificationDropped(template)
		s.log.Error(err, "failed to enqueue notification", "ticket_id", t.ID.String(), "template", template)
	}
}

func actorID(a model.Actor) *uuid.UUID {
	if a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}
