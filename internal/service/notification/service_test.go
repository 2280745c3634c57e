package notification

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository/memory"
	"github.com/jwalitptl/care-booking/internal/service/event"
)

func TestBuildRendersAllLocales(t *testing.T) {
	recipient := uuid.New()
	apptID := uuid.New()

	intent := Build(recipient, "ar-SA", TemplateBookingPendingPatient, AppointmentLink(apptID),
		map[string]string{"provider": "Dr. Salma", "date": "2025-03-10", "time": "16:30"},
		model.JSONMap{"appointment_id": apptID.String()})

	assert.Equal(t, recipient, intent.RecipientUserID)
	assert.Equal(t, "ar", intent.Locale)
	require.Contains(t, intent.Messages, "en")
	require.Contains(t, intent.Messages, "ar")
	assert.Contains(t, intent.Messages["en"].Body, "Dr. Salma")
	assert.Contains(t, intent.Messages["ar"].Body, "16:30")
	assert.Equal(t, "/appointments/"+apptID.String(), intent.Metadata["deep_link"])
	assert.Equal(t, apptID.String(), intent.Metadata["appointment_id"])
}

func TestRenderUnknownTemplate(t *testing.T) {
	msgs := Render("does.not.exist", nil)
	assert.Equal(t, "does.not.exist", msgs["en"].Title)
}

func TestNotifyEnqueuesOutboxEvent(t *testing.T) {
	outbox := memory.NewStore().Outbox()
	svc := NewService(event.NewService(outbox))

	intent := Build(uuid.New(), "en", TemplatePrescriptionReady, TicketLink(uuid.New()), map[string]string{"number": "TKT-20250310-00042"}, nil)
	require.NoError(t, svc.Notify(context.Background(), intent))

	events := outbox.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventType, events[0].EventType)

	var decoded model.NotificationIntent
	require.NoError(t, json.Unmarshal(events[0].Payload, &decoded))
	assert.Equal(t, TemplatePrescriptionReady, decoded.TemplateKey)
	assert.Contains(t, decoded.Messages["en"].Body, "TKT-20250310-00042")
}

func TestNotifyRejectsInvalidIntent(t *testing.T) {
	outbox := memory.NewStore().Outbox()
	svc := NewService(event.NewService(outbox))

	err := svc.Notify(context.Background(), model.NotificationIntent{TemplateKey: "x"})
	assert.Error(t, err)
	assert.Empty(t, outbox.Events())
}
