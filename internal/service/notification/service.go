package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/care-booking/internal/model"
	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
)

// EventType is the outbox event carrying a notification intent.
const EventType = "notification.intent"

// Notifier hands a notification intent to the delivery channel. It is
// at-most-once from the caller's side; callers log failures and move on.
type Notifier interface {
	Notify(ctx context.Context, intent model.NotificationIntent) error
}

// Emitter is the outbox writer.
type Emitter interface {
	Emit(ctx context.Context, eventType string, payload interface{}) error
}

type Service struct {
	events Emitter
}

func NewService(events Emitter) *Service {
	return &Service{events: events}
}

func (s *Service) Notify(ctx context.Context, intent model.NotificationIntent) error {
	if err := validateIntent(intent); err != nil {
		return fmt.Errorf("invalid notification: %w", err)
	}
	if err := s.events.Emit(ctx, EventType, intent); err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}

func validateIntent(intent model.NotificationIntent) error {
	if intent.RecipientUserID == uuid.Nil {
		return fmt.Errorf("recipient is required")
	}
	if intent.TemplateKey == "" {
		return fmt.Errorf("template key is required")
	}
	if len(intent.Messages) == 0 {
		return fmt.Errorf("at least one message variant is required")
	}
	return nil
}

// Build renders templateKey in every supported locale. locale is the
// recipient's preferred variant and link the deep link into the app.
func Build(recipient uuid.UUID, locale, templateKey, link string, params map[string]string, metadata model.JSONMap) model.NotificationIntent {
	meta := model.JSONMap{}
	for k, v := range metadata {
		meta[k] = v
	}
	if link != "" {
		meta["deep_link"] = link
	}
	return model.NotificationIntent{
		RecipientUserID: recipient,
		TemplateKey:     templateKey,
		Locale:          apperrors.NormalizeLocale(locale),
		Messages:        Render(templateKey, params),
		Metadata:        meta,
	}
}

// AppointmentLink is the deep link for an appointment.
func AppointmentLink(id uuid.UUID) string {
	return "/appointments/" + id.String()
}

// TicketLink is the deep link for a ticket.
func TicketLink(id uuid.UUID) string {
	return "/tickets/" + id.String()
}
