package ticket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository/memory"
	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
	"github.com/jwalitptl/care-booking/pkg/logger"
)

type recordingNotifier struct {
	mu      sync.Mutex
	intents []model.NotificationIntent
	err     error
}

func (n *recordingNotifier) Notify(_ context.Context, intent model.NotificationIntent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.intents = append(n.intents, intent)
	return nil
}

func (n *recordingNotifier) templates() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.intents))
	for _, i := range n.intents {
		out = append(out, i.TemplateKey)
	}
	return out
}

type fixture struct {
	store    *memory.Store
	svc      *Service
	notifier *recordingNotifier
	patient  uuid.UUID
	doctor   *model.Provider
	lab      *model.Provider
	pharmacy *model.Provider
}

var fixedNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.SetClock(func() time.Time { return fixedNow })

	f := &fixture{store: store, notifier: &recordingNotifier{}, patient: uuid.New()}
	f.doctor = f.provider(t, model.ProviderKindDoctor)
	f.lab = f.provider(t, model.ProviderKindLaboratory)
	f.pharmacy = f.provider(t, model.ProviderKindPharmacy)

	f.svc = NewService(store.Tickets(), store.Providers(), f.notifier,
		NewNumberGenerator("TKT", func() time.Time { return fixedNow }),
		logger.Nop(), WithClock(func() time.Time { return fixedNow }))
	return f
}

func (f *fixture) provider(t *testing.T, kind model.ProviderKind) *model.Provider {
	t.Helper()
	owner := uuid.New()
	p := &model.Provider{OwnerUserID: &owner, Kind: kind, DisplayName: string(kind), Locale: "en"}
	require.NoError(t, f.store.Providers().Create(context.Background(), p))
	return p
}

func actorFor(p *model.Provider, role model.ActorRole) model.Actor {
	id := p.ID
	return model.Actor{UserID: *p.OwnerUserID, Role: role, ProviderID: &id}
}

func (f *fixture) labTicket(t *testing.T) *model.Ticket {
	t.Helper()
	labID := f.lab.ID
	tk, err := f.svc.CreateTicket(context.Background(), actorFor(f.doctor, model.RoleDoctor), CreateRequest{
		Type:              model.TicketTypeLabRequest,
		PatientID:         f.patient,
		FulfillingPartyID: &labID,
		PaymentMethod:     "cash",
		PaymentAmount:     120,
		Metadata:          model.JSONMap{MetaPatientLocale: "ar"},
	})
	require.NoError(t, err)
	return tk
}

func (f *fixture) prescriptionTicket(t *testing.T) *model.Ticket {
	t.Helper()
	pharmacyID := f.pharmacy.ID
	tk, err := f.svc.CreateTicket(context.Background(), actorFor(f.doctor, model.RoleDoctor), CreateRequest{
		Type:              model.TicketTypePrescription,
		PatientID:         f.patient,
		FulfillingPartyID: &pharmacyID,
	})
	require.NoError(t, err)
	return tk
}

func requireCode(t *testing.T, err error, code apperrors.ErrorCode) *apperrors.AppError {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		name   string
		typ    model.TicketType
		from   model.TicketStatus
		action model.TicketAction
		to     model.TicketStatus
		ok     bool
	}{
		{"appointment confirm", model.TicketTypeAppointment, model.TicketStatusPending, model.ActionConfirm, model.TicketStatusConfirmed, true},
		{"appointment cancel confirmed", model.TicketTypeAppointment, model.TicketStatusConfirmed, model.ActionCancel, model.TicketStatusCancelled, true},
		{"appointment complete pending", model.TicketTypeAppointment, model.TicketStatusPending, model.ActionComplete, "", false},
		{"prescription dispense", model.TicketTypePrescription, model.TicketStatusReady, model.ActionDispense, model.TicketStatusDispensed, true},
		{"lab sent_to_lab start_processing", model.TicketTypeLabRequest, model.TicketStatusSentToLab, model.ActionStartProcessing, "", false},
		{"lab fulfilled start_processing", model.TicketTypeLabRequest, model.TicketStatusFulfilled, model.ActionStartProcessing, "", false},
		{"lab sample start_processing", model.TicketTypeLabRequest, model.TicketStatusSampleCollected, model.ActionStartProcessing, model.TicketStatusProcessing, true},
		{"referral decline accepted", model.TicketTypeReferral, model.TicketStatusAccepted, model.ActionDecline, model.TicketStatusDeclined, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edge, ok := Lookup(tt.typ, tt.from, tt.action)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.to, edge.To)
			}
		})
	}

	assert.True(t, IsTerminal(model.TicketTypeLabRequest, model.TicketStatusFulfilled))
	assert.True(t, IsTerminal(model.TicketTypePrescription, model.TicketStatusCollected))
	assert.True(t, IsTerminal(model.TicketTypeAppointment, model.TicketStatusCancelled))
	assert.False(t, IsTerminal(model.TicketTypeAppointment, model.TicketStatusConfirmed))
	assert.ElementsMatch(t, []model.TicketAction{model.ActionCollect, model.ActionDispense},
		Actions(model.TicketTypePrescription, model.TicketStatusReady))
}

func TestLabWorkflowWithCashConfirmation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tk := f.labTicket(t)
	labActor := actorFor(f.lab, model.RoleLaboratory)

	assert.Equal(t, model.TicketStatusSentToLab, tk.Status)
	assert.Regexp(t, `^TKT-20250310-\d{5}$`, tk.Number)

	_, err := f.svc.Transition(ctx, tk.ID, TransitionRequest{Action: model.ActionStartProcessing, Actor: labActor})
	requireCode(t, err, apperrors.ErrIllegalTransition)

	got, err := f.svc.Transition(ctx, tk.ID, TransitionRequest{Action: model.ActionCollectSample, Actor: labActor, ConfirmCash: true})
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusSampleCollected, got.Status)
	assert.Equal(t, model.PaymentStatusPaidCash, got.PaymentStatus)

	_, err = f.svc.Transition(ctx, tk.ID, TransitionRequest{Action: model.ActionStartProcessing, Actor: labActor, ConfirmCash: true})
	requireCode(t, err, apperrors.ErrValidation)

	_, err = f.svc.Transition(ctx, tk.ID, TransitionRequest{Action: model.ActionStartProcessing, Actor: labActor})
	require.NoError(t, err)
	got, err = f.svc.Transition(ctx, tk.ID, TransitionRequest{Action: model.ActionFulfill, Actor: labActor, Note: "results uploaded"})
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusFulfilled, got.Status)
	require.NotNil(t, got.FulfilledAt)
	assert.Equal(t, fixedNow, *got.FulfilledAt)

	_, err = f.svc.Transition(ctx, tk.ID, TransitionRequest{Action: model.ActionStartProcessing, Actor: labActor})
	appErr := requireCode(t, err, apperrors.ErrIllegalTransition)
	assert.False(t, appErr.Retryable)

	full, err := f.svc.GetTicket(ctx, tk.ID)
	require.NoError(t, err)
	actions := make([]model.TicketAction, 0, len(full.Timeline))
	for _, e := range full.Timeline {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []model.TicketAction{
		model.ActionCreated, model.ActionCollectSample, model.ActionStartProcessing, model.ActionFulfill,
	}, actions)
	assert.Contains(t, full.Timeline[3].DescriptionEn, "results uploaded")
	assert.NotEmpty(t, full.Timeline[3].DescriptionAr)

	assert.Contains(t, f.notifier.templates(), "ticket.lab_fulfilled")
	last := f.notifier.intents[len(f.notifier.intents)-1]
	assert.Equal(t, f.patient, last.RecipientUserID)
	assert.Equal(t, "ar", last.Locale)
	assert.Equal(t, "/tickets/"+tk.ID.String(), last.Metadata["deep_link"])
}

func TestTransitionAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tk := f.prescriptionTicket(t)

	patient := model.Actor{UserID: f.patient, Role: model.RolePatient}
	_, err := f.svc.Transition(ctx, tk.ID, TransitionRequest{Action: model.ActionStartProcessing, Actor: patient})
	requireCode(t, err, apperrors.ErrForbidden)

	other := f.provider(t, model.ProviderKindPharmacy)
	_, err = f.svc.Transition(ctx, tk.ID, TransitionRequest{Action: model.ActionStartProcessing, Actor: actorFor(other, model.RolePharmacy)})
	requireCode(t, err, apperrors.ErrForbidden)

	got, err := f.svc.Transition(ctx, tk.ID, TransitionRequest{Action: model.ActionStartProcessing, Actor: actorFor(f.pharmacy, model.RolePharmacy)})
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusProcessing, got.Status)
}

func TestConcurrentTransitionsHaveOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tk := f.prescriptionTicket(t)
	pharmacist := actorFor(f.pharmacy, model.RolePharmacy)

	for _, a := range []model.TicketAction{model.ActionStartProcessing, model.ActionMarkReady} {
		_, err := f.svc.Transition(ctx, tk.ID, TransitionRequest{Action: a, Actor: pharmacist})
		require.NoError(t, err)
	}

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		errs    []error
	)
	for i := 0; i < workers; i++ {
		action := model.ActionCollect
		if i%2 == 1 {
			action = model.ActionDispense
		}
		wg.Add(1)
		go func(action model.TicketAction) {
			defer wg.Done()
			_, err := f.svc.Transition(ctx, tk.ID, TransitionRequest{Action: action, Actor: pharmacist})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				success++
				return
			}
			errs = append(errs, err)
		}(action)
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	for _, err := range errs {
		assert.True(t, apperrors.HasCode(err, apperrors.ErrIllegalTransition), "unexpected error %v", err)
	}

	timeline, err := f.store.Tickets().ListTimeline(ctx, tk.ID)
	require.NoError(t, err)
	assert.Len(t, timeline, 4)
}

func TestAppointmentTicketMirrorsAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	providerID := f.doctor.ID
	appt := &model.Appointment{
		PatientID:     f.patient,
		ProviderID:    &providerID,
		Date:          "2025-03-10",
		Time:          "16:30",
		PaymentStatus: model.PaymentStatusUnpaid,
		Status:        model.AppointmentStatusPending,
	}
	require.NoError(t, f.store.Appointments().Create(ctx, appt))

	tk, err := f.svc.CreateForAppointment(ctx, appt, model.JSONMap{MetaPatientLocale: "en"})
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusPending, tk.Status)
	require.Len(t, tk.Timeline, 1)
	assert.Equal(t, model.ActionCreated, tk.Timeline[0].Action)

	_, err = f.svc.Transition(ctx, tk.ID, TransitionRequest{Action: model.ActionConfirm, Actor: actorFor(f.doctor, model.RoleDoctor)})
	require.NoError(t, err)
	stored, err := f.store.Appointments().GetByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, stored.Status)

	patient := model.Actor{UserID: f.patient, Role: model.RolePatient}
	got, err := f.svc.Transition(ctx, tk.ID, TransitionRequest{Action: model.ActionCancel, Actor: patient, Note: "travelling"})
	require.NoError(t, err)
	require.NotNil(t, got.CancelledAt)

	stored, err = f.store.Appointments().GetByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, stored.Status)
	require.NotNil(t, stored.CancelReason)
	assert.Equal(t, "travelling", *stored.CancelReason)

	assert.Equal(t, []string{"ticket.appointment_confirmed", "ticket.appointment_cancelled"}, f.notifier.templates())
}

func TestAutoConfirmedAppointmentTicketRecordsConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	providerID := f.doctor.ID
	appt := &model.Appointment{
		PatientID:     f.patient,
		ProviderID:    &providerID,
		Date:          "2025-03-11",
		Time:          "10:00",
		PaymentStatus: model.PaymentStatusUnpaid,
		Status:        model.AppointmentStatusConfirmed,
	}
	require.NoError(t, f.store.Appointments().Create(ctx, appt))

	tk, err := f.svc.CreateForAppointment(ctx, appt, nil)
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusConfirmed, tk.Status)

	timeline, err := f.store.Tickets().ListTimeline(ctx, tk.ID)
	require.NoError(t, err)
	require.Len(t, timeline, 2)
	assert.Equal(t, model.ActionCreated, timeline[0].Action)
	assert.Equal(t, model.ActionConfirm, timeline[1].Action)
	assert.Equal(t, model.RoleSystem, timeline[1].ActorRole)
	assert.Nil(t, timeline[1].ActorID)
	assert.Empty(t, f.notifier.templates())
}

func TestGetTicketListsAvailableActions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tk := f.prescriptionTicket(t)

	got, err := f.svc.GetTicket(ctx, tk.ID)
	require.NoError(t, err)
	assert.False(t, got.Terminal)
	assert.NotEmpty(t, got.AvailableActions)
	assert.ElementsMatch(t, Actions(model.TicketTypePrescription, got.Status), got.AvailableActions)

	for _, action := range []model.TicketAction{model.ActionStartProcessing, model.ActionMarkReady, model.ActionCollect} {
		_, err := f.svc.Transition(ctx, tk.ID, TransitionRequest{Action: action, Actor: actorFor(f.pharmacy, model.RolePharmacy)})
		require.NoError(t, err)
	}
	got, err = f.svc.GetTicket(ctx, tk.ID)
	require.NoError(t, err)
	assert.True(t, got.Terminal)
	assert.Empty(t, got.AvailableActions)
}

func TestAppendMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tk := f.labTicket(t)
	labActor := actorFor(f.lab, model.RoleLaboratory)
	for _, a := range []model.TicketAction{model.ActionCollectSample, model.ActionStartProcessing, model.ActionFulfill} {
		_, err := f.svc.Transition(ctx, tk.ID, TransitionRequest{Action: a, Actor: labActor})
		require.NoError(t, err)
	}

	_, err := f.svc.AppendMessage(ctx, tk.ID, labActor, "   ")
	requireCode(t, err, apperrors.ErrValidation)

	stranger := model.Actor{UserID: uuid.New(), Role: model.RolePatient}
	_, err = f.svc.AppendMessage(ctx, tk.ID, stranger, "hello")
	requireCode(t, err, apperrors.ErrForbidden)

	msg, err := f.svc.AppendMessage(ctx, tk.ID, labActor, "  Results attached  ")
	require.NoError(t, err)
	assert.Equal(t, "Results attached", msg.Body)

	full, err := f.svc.GetTicket(ctx, tk.ID)
	require.NoError(t, err)
	require.Len(t, full.Messages, 1)
	assert.Equal(t, model.ActionMessage, full.Timeline[len(full.Timeline)-1].Action)
	assert.Equal(t, model.TicketStatusFulfilled, full.Status)
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateTicket(ctx, model.Actor{UserID: f.patient, Role: model.RolePatient}, CreateRequest{
		Type: model.TicketTypeReferral, PatientID: f.patient,
	})
	requireCode(t, err, apperrors.ErrForbidden)

	_, err = f.svc.CreateTicket(ctx, actorFor(f.doctor, model.RoleDoctor), CreateRequest{
		Type: model.TicketTypeAppointment, PatientID: f.patient,
	})
	requireCode(t, err, apperrors.ErrValidation)

	missing := uuid.New()
	_, err = f.svc.CreateTicket(ctx, actorFor(f.doctor, model.RoleDoctor), CreateRequest{
		Type: model.TicketTypeReferral, PatientID: f.patient, FulfillingPartyID: &missing,
	})
	requireCode(t, err, apperrors.ErrValidation)

	clinic := f.provider(t, model.ProviderKindClinic)
	clinicID := clinic.ID
	tk, err := f.svc.CreateTicket(ctx, actorFor(f.doctor, model.RoleDoctor), CreateRequest{
		Type: model.TicketTypeReferral, PatientID: f.patient, FulfillingPartyID: &clinicID,
	})
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusPending, tk.Status)
	require.NotNil(t, tk.OrderingDoctorID)
	assert.Equal(t, f.doctor.ID, *tk.OrderingDoctorID)

	recipients := map[uuid.UUID]bool{}
	for _, i := range f.notifier.intents {
		recipients[i.RecipientUserID] = true
	}
	assert.True(t, recipients[*clinic.OwnerUserID])
	assert.True(t, recipients[f.patient])
}

func TestTicketNumberCollisionRetries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seq := []int{1, 1, 2}
	f.svc.numbers.intn = func(int) int {
		n := seq[0]
		seq = seq[1:]
		return n
	}
	first := f.prescriptionTicket(t)
	second := f.prescriptionTicket(t)
	assert.Equal(t, "TKT-20250310-00001", first.Number)
	assert.Equal(t, "TKT-20250310-00002", second.Number)

	f.svc.numbers.intn = func(int) int { return 1 }
	pharmacyID := f.pharmacy.ID
	_, err := f.svc.CreateTicket(ctx, actorFor(f.doctor, model.RoleDoctor), CreateRequest{
		Type: model.TicketTypePrescription, PatientID: f.patient, FulfillingPartyID: &pharmacyID,
	})
	require.Error(t, err)
}

func TestNotificationFailureDoesNotFailTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tk := f.prescriptionTicket(t)
	f.notifier.err = errors.New("outbox unavailable")
	pharmacist := actorFor(f.pharmacy, model.RolePharmacy)

	_, err := f.svc.Transition(ctx, tk.ID, TransitionRequest{Action: model.ActionStartProcessing, Actor: pharmacist})
	require.NoError(t, err)
	got, err := f.svc.Transition(ctx, tk.ID, TransitionRequest{Action: model.ActionMarkReady, Actor: pharmacist})
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusReady, got.Status)
}

func TestGetTicketNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetTicket(context.Background(), uuid.New())
	requireCode(t, err, apperrors.ErrNotFound)
}
