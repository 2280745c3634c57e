package booking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
	"github.com/jwalitptl/care-booking/internal/repository/memory"
	"github.com/jwalitptl/care-booking/internal/service/event"
	"github.com/jwalitptl/care-booking/internal/service/notification"
	"github.com/jwalitptl/care-booking/internal/service/snapshot"
	"github.com/jwalitptl/care-booking/internal/service/ticket"
	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
	"github.com/jwalitptl/care-booking/pkg/logger"
)

var now = time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

type harness struct {
	store    *memory.Store
	svc      *Service
	tickets  *ticket.Service
	patient  uuid.UUID
	provider *model.Provider
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.NewStore()
	store.SetClock(func() time.Time { return now })
	clock := func() time.Time { return now }

	owner := uuid.New()
	provider := &model.Provider{
		OwnerUserID: &owner,
		Kind:        model.ProviderKindDoctor,
		DisplayName: "Dr. Salma Haddad",
		Specialty:   "Cardiology",
		Locale:      "ar",
		WorkingHours: model.WorkingHours{
			"monday": {Open: strPtr("09:00"), Close: strPtr("17:00"), IsOpen: boolPtr(true)},
			"sunday": {IsOpen: boolPtr(false)},
		},
		UnavailableDates: []string{"2025-03-17"},
	}
	require.NoError(t, store.Providers().Create(context.Background(), provider))

	notifier := notification.NewService(event.NewService(store.Outbox()))
	tickets := ticket.NewService(store.Tickets(), store.Providers(), notifier,
		ticket.NewNumberGenerator("TKT", clock), logger.Nop(), ticket.WithClock(clock))
	svc := NewService(store.Providers(), store.Appointments(), tickets, snapshot.NewService(store, clock), notifier)

	return &harness{store: store, svc: svc, tickets: tickets, patient: uuid.New(), provider: provider}
}

func (h *harness) request(date, clock string) Request {
	return Request{
		PatientID:     h.patient,
		Locale:        "en",
		ProviderID:    h.provider.ID.String(),
		Date:          date,
		Time:          clock,
		VisitType:     "in_person",
		PaymentMethod: "cash",
		PaymentAmount: 200,
		CreateTicket:  true,
	}
}

func (h *harness) notificationIntents(t *testing.T) []model.NotificationIntent {
	t.Helper()
	var out []model.NotificationIntent
	for _, e := range h.store.Outbox().Events() {
		if e.EventType != notification.EventType {
			continue
		}
		var intent model.NotificationIntent
		require.NoError(t, json.Unmarshal(e.Payload, &intent))
		out = append(out, intent)
	}
	return out
}

func requireCode(t *testing.T, err error, code apperrors.ErrorCode) *apperrors.AppError {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	require.Equal(t, code, appErr.Code)
	return appErr
}

func TestCreateBookingScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.svc.CreateBooking(ctx, h.request("2025-03-10", "16:30"))
	require.NoError(t, err)

	appt := res.Appointment
	assert.Equal(t, model.AppointmentStatusPending, appt.Status)
	assert.Equal(t, "Dr. Salma Haddad", appt.ProviderName)
	require.NotNil(t, appt.ProviderID)
	assert.Equal(t, h.provider.ID, *appt.ProviderID)
	assert.Regexp(t, `^TKT-20250309-\d{5}$`, res.TicketNumber)

	tk, err := h.tickets.GetByAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketTypeAppointment, tk.Type)
	assert.Equal(t, model.TicketStatusPending, tk.Status)
	assert.Equal(t, "en", tk.Metadata[ticket.MetaPatientLocale])

	timeline, err := h.store.Tickets().ListTimeline(ctx, tk.ID)
	require.NoError(t, err)
	require.Len(t, timeline, 1)
	assert.Equal(t, model.ActionCreated, timeline[0].Action)

	intents := h.notificationIntents(t)
	require.Len(t, intents, 2)
	assert.Equal(t, h.patient, intents[0].RecipientUserID)
	assert.Equal(t, notification.TemplateBookingPendingPatient, intents[0].TemplateKey)
	assert.Equal(t, *h.provider.OwnerUserID, intents[1].RecipientUserID)
	assert.Equal(t, "ar", intents[1].Locale)
	assert.Equal(t, "/appointments/"+appt.ID.String(), intents[1].Metadata["deep_link"])

	_, err = h.svc.CreateBooking(ctx, h.request("2025-03-10", "16:30"))
	conflict := requireCode(t, err, apperrors.ErrConflict)
	assert.Equal(t, appt.ID.String(), conflict.ExistingID)
	assert.Equal(t, http.StatusConflict, conflict.StatusCode())
}

func TestCreateBookingScheduleRules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.CreateBooking(ctx, h.request("2025-03-10", "17:30"))
	appErr := requireCode(t, err, apperrors.ErrSchedule)
	assert.Equal(t, apperrors.KeyOutsideHours, appErr.Key)
	assert.Contains(t, appErr.Localized("en"), "09:00–17:00")

	for _, clock := range []string{"03:00", "12:00", "23:59"} {
		_, err = h.svc.CreateBooking(ctx, h.request("2025-03-09", clock))
		appErr = requireCode(t, err, apperrors.ErrSchedule)
		assert.Equal(t, apperrors.KeyClosedDay, appErr.Key)
	}

	_, err = h.svc.CreateBooking(ctx, h.request("2025-03-17", "10:00"))
	appErr = requireCode(t, err, apperrors.ErrSchedule)
	assert.Equal(t, apperrors.KeyDateUnavailable, appErr.Key)

	assert.Empty(t, h.store.Outbox().Events())
}

func TestCreateBookingValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	req := h.request("2025-03-10", "10:00")
	req.PatientID = uuid.Nil
	_, err := h.svc.CreateBooking(ctx, req)
	requireCode(t, err, apperrors.ErrUnauthorized)

	_, err = h.svc.CreateBooking(ctx, h.request("10/03/2025", "10:00"))
	requireCode(t, err, apperrors.ErrValidation)

	_, err = h.svc.CreateBooking(ctx, h.request("2025-03-10", "ten"))
	requireCode(t, err, apperrors.ErrValidation)

	req = h.request("2025-03-10", "10:00")
	req.FamilyMemberIDs = []uuid.UUID{uuid.New()}
	_, err = h.svc.CreateBooking(ctx, req)
	appErr := requireCode(t, err, apperrors.ErrValidation)
	assert.Equal(t, apperrors.KeyFamilyMember, appErr.Key)
}

func TestCancelledBookingFreesSlot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.svc.CreateBooking(ctx, h.request("2025-03-10", "11:00"))
	require.NoError(t, err)

	cancelled, err := h.svc.CancelAppointment(ctx, h.patient, first.Appointment.ID, "schedule clash")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelReason)
	assert.Equal(t, "schedule clash", *cancelled.CancelReason)

	tk, err := h.tickets.GetByAppointment(ctx, first.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusCancelled, tk.Status)

	second, err := h.svc.CreateBooking(ctx, h.request("2025-03-10", "11:00"))
	require.NoError(t, err)
	assert.NotEqual(t, first.Appointment.ID, second.Appointment.ID)

	_, err = h.svc.CancelAppointment(ctx, h.patient, first.Appointment.ID, "")
	appErr := requireCode(t, err, apperrors.ErrValidation)
	assert.Equal(t, apperrors.KeyNotCancellable, appErr.Key)

	_, err = h.svc.CancelAppointment(ctx, uuid.New(), second.Appointment.ID, "")
	requireCode(t, err, apperrors.ErrForbidden)
}

func TestCancelWithoutTicket(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	req := h.request("2025-03-10", "12:00")
	req.CreateTicket = false
	res, err := h.svc.CreateBooking(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, res.TicketNumber)

	got, err := h.svc.CancelAppointment(ctx, h.patient, res.Appointment.ID, "")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, got.Status)
	assert.Nil(t, got.CancelReason)
}

func TestProviderResolution(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	doctorID := uuid.New()
	h.store.RegisterLegacyDoctor(doctorID, *h.provider.OwnerUserID)
	req := h.request("2025-03-10", "09:00")
	req.ProviderID = "  " + doctorID.String() + " "
	res, err := h.svc.CreateBooking(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, res.Appointment.ProviderID)
	assert.Equal(t, h.provider.ID, *res.Appointment.ProviderID)

	req = h.request("2025-03-09", "23:00")
	req.ProviderID = "dr-salma"
	req.ProviderName = "Walk-in clinic"
	req.CreateTicket = false
	res, err = h.svc.CreateBooking(ctx, req)
	require.NoError(t, err)
	assert.Nil(t, res.Appointment.ProviderID)
	assert.Equal(t, "Walk-in clinic", res.Appointment.ProviderName)
	assert.Len(t, h.notificationIntents(t), 3)

	// An unknown id also books provider-less, so it collides with the slot above.
	req.ProviderID = uuid.New().String()
	_, err = h.svc.CreateBooking(ctx, req)
	conflict := requireCode(t, err, apperrors.ErrConflict)
	assert.Equal(t, res.Appointment.ID.String(), conflict.ExistingID)

	// A provider-less booking does not collide with a provider booking.
	req = h.request("2025-03-10", "09:00")
	req.ProviderID = ""
	_, err = h.svc.CreateBooking(ctx, req)
	require.NoError(t, err)
}

func TestAutoConfirmAndSnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	owner := uuid.New()
	clinic := &model.Provider{OwnerUserID: &owner, Kind: model.ProviderKindClinic, DisplayName: "Nile Clinic", AutoConfirm: true}
	require.NoError(t, h.store.Providers().Create(ctx, clinic))
	require.NoError(t, h.store.UpsertPatientProfile(ctx, &model.PatientProfile{
		UserID:         h.patient,
		FullName:       "Omar Khalil",
		ClinicalRecord: model.ClinicalRecord{DateOfBirth: "1990-03-09", BloodType: "O+", Gender: "male"},
	}))

	req := h.request("2025-03-12", "08:00")
	req.ProviderID = clinic.ID.String()
	req.Overrides = model.ClinicalOverrides{BloodType: "A+"}
	res, err := h.svc.CreateBooking(ctx, req)
	require.NoError(t, err)

	appt := res.Appointment
	assert.Equal(t, model.AppointmentStatusConfirmed, appt.Status)
	assert.Equal(t, "A+", appt.Snapshot.BloodType)
	assert.Equal(t, "male", appt.Snapshot.Gender)
	require.NotNil(t, appt.Snapshot.Age)
	assert.Equal(t, 35, *appt.Snapshot.Age)

	tk, err := h.tickets.GetByAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusConfirmed, tk.Status)

	timeline, err := h.store.Tickets().ListTimeline(ctx, tk.ID)
	require.NoError(t, err)
	require.Len(t, timeline, 2)
	assert.Equal(t, model.ActionCreated, timeline[0].Action)
	assert.Equal(t, model.ActionConfirm, timeline[1].Action)
	assert.Equal(t, model.RoleSystem, timeline[1].ActorRole)

	intents := h.notificationIntents(t)
	require.Len(t, intents, 2)
	assert.Equal(t, notification.TemplateBookingConfirmedPatient, intents[0].TemplateKey)
	assert.Contains(t, intents[1].Messages["en"].Body, "Omar Khalil")
}

func TestGroupBookingStoresMembers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var ids []uuid.UUID
	for _, name := range []string{"Lina", "Yusuf"} {
		m := &model.FamilyMember{OwnerUserID: h.patient, FullName: name, Relationship: "child",
			ClinicalRecord: model.ClinicalRecord{BloodType: "B+"}}
		require.NoError(t, h.store.CreateFamilyMember(ctx, m))
		ids = append(ids, m.ID)
	}

	req := h.request("2025-03-10", "14:00")
	req.FamilyMemberIDs = ids
	res, err := h.svc.CreateBooking(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, res.Appointment.FamilyMemberID)
	assert.Equal(t, ids[0], *res.Appointment.FamilyMemberID)
	assert.Equal(t, "Lina", res.Appointment.Snapshot.FullName)

	tk, err := h.tickets.GetByAppointment(ctx, res.Appointment.ID)
	require.NoError(t, err)
	members, ok := tk.Metadata[ticket.MetaFamilyMembers].([]model.ClinicalSnapshot)
	require.True(t, ok)
	assert.Len(t, members, 2)
}

type racingAppointments struct {
	repository.AppointmentRepository
	createErr error
	existing  *uuid.UUID
	lookups   int
}

func (r *racingAppointments) FindActiveDuplicate(context.Context, uuid.UUID, *uuid.UUID, string, string) (*uuid.UUID, error) {
	r.lookups++
	if r.lookups == 1 {
		return nil, nil
	}
	return r.existing, nil
}

func (r *racingAppointments) Create(context.Context, *model.Appointment) error {
	return r.createErr
}

func TestPersistenceFailures(t *testing.T) {
	winner := uuid.New()
	tests := []struct {
		name     string
		repo     *racingAppointments
		code     apperrors.ErrorCode
		key      string
		status   int
		existing string
	}{
		{"concurrent duplicate", &racingAppointments{createErr: repository.ErrDuplicate, existing: &winner},
			apperrors.ErrConflict, apperrors.KeyDuplicateBooking, http.StatusConflict, winner.String()},
		{"unknown provider", &racingAppointments{createErr: repository.ErrForeignKey},
			apperrors.ErrPersistence, apperrors.KeyChooseProvider, http.StatusBadRequest, ""},
		{"store down", &racingAppointments{createErr: errors.New("connection refused")},
			apperrors.ErrPersistence, apperrors.KeyBookingFailed, http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			svc := NewService(h.store.Providers(), tt.repo, h.tickets, snapshot.NewService(h.store, nil), nil)

			_, err := svc.CreateBooking(context.Background(), h.request("2025-03-10", "10:00"))
			appErr := requireCode(t, err, tt.code)
			assert.Equal(t, tt.key, appErr.Key)
			assert.Equal(t, tt.status, appErr.StatusCode())
			assert.Equal(t, tt.existing, appErr.ExistingID)
		})
	}
}

type failingTickets struct{ Tickets }

func (failingTickets) CreateForAppointment(context.Context, *model.Appointment, model.JSONMap) (*model.Ticket, error) {
	return nil, errors.New("ticket number collision")
}

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, model.NotificationIntent) error {
	return errors.New("outbox unavailable")
}

func TestSideEffectFailuresAreAbsorbed(t *testing.T) {
	h := newHarness(t)
	svc := NewService(h.store.Providers(), h.store.Appointments(), failingTickets{h.tickets},
		snapshot.NewService(h.store, nil), failingNotifier{})

	res, err := svc.CreateBooking(context.Background(), h.request("2025-03-10", "15:00"))
	require.NoError(t, err)
	assert.Empty(t, res.TicketNumber)

	stored, err := h.store.Appointments().GetByID(context.Background(), res.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, stored.Status)
}
