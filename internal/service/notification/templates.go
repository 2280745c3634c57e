package notification

import (
	"strings"

	"github.com/jwalitptl/care-booking/internal/model"
	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
)

// Template keys
const (
	TemplateBookingPendingPatient   = "booking.pending.patient"
	TemplateBookingConfirmedPatient = "booking.confirmed.patient"
	TemplateBookingCreatedProvider  = "booking.created.provider"
	TemplateBookingCancelled        = "booking.cancelled"
	TemplateAppointmentConfirmed    = "ticket.appointment_confirmed"
	TemplateAppointmentCancelled    = "ticket.appointment_cancelled"
	TemplatePrescriptionReady       = "ticket.prescription_ready"
	TemplateLabFulfilled            = "ticket.lab_fulfilled"
	TemplateReferralAccepted        = "ticket.referral_accepted"
	TemplateReferralDeclined        = "ticket.referral_declined"
	TemplateTicketReceived          = "ticket.received"
	TemplateTicketMessage           = "ticket.new_message"
)

type variant struct {
	title string
	body  string
}

var templates = map[string]map[string]variant{
	TemplateBookingPendingPatient: {
		apperrors.DefaultLocale: {"Booking received", "Your booking with {provider} on {date} at {time} is awaiting confirmation."},
		apperrors.LocaleArabic:  {"تم استلام الحجز", "حجزك مع {provider} بتاريخ {date} الساعة {time} بانتظار التأكيد."},
	},
	TemplateBookingConfirmedPatient: {
		apperrors.DefaultLocale: {"Booking confirmed", "Your booking with {provider} on {date} at {time} is confirmed."},
		apperrors.LocaleArabic:  {"تم تأكيد الحجز", "تم تأكيد حجزك مع {provider} بتاريخ {date} الساعة {time}."},
	},
	TemplateBookingCreatedProvider: {
		apperrors.DefaultLocale: {"New booking", "{patient} booked {date} at {time}."},
		apperrors.LocaleArabic:  {"حجز جديد", "قام {patient} بالحجز بتاريخ {date} الساعة {time}."},
	},
	TemplateBookingCancelled: {
		apperrors.DefaultLocale: {"Booking cancelled", "The booking on {date} at {time} was cancelled."},
		apperrors.LocaleArabic:  {"تم إلغاء الحجز", "تم إلغاء الحجز بتاريخ {date} الساعة {time}."},
	},
	TemplateAppointmentConfirmed: {
		apperrors.DefaultLocale: {"Appointment confirmed", "Ticket {number}: your appointment has been confirmed."},
		apperrors.LocaleArabic:  {"تم تأكيد الموعد", "التذكرة {number}: تم تأكيد موعدك."},
	},
	TemplateAppointmentCancelled: {
		apperrors.DefaultLocale: {"Appointment cancelled", "Ticket {number}: your appointment has been cancelled."},
		apperrors.LocaleArabic:  {"تم إلغاء الموعد", "التذكرة {number}: تم إلغاء موعدك."},
	},
	TemplatePrescriptionReady: {
		apperrors.DefaultLocale: {"Prescription ready", "Ticket {number}: your prescription is ready for collection."},
		apperrors.LocaleArabic:  {"الوصفة جاهزة", "التذكرة {number}: وصفتك جاهزة للاستلام."},
	},
	TemplateLabFulfilled: {
		apperrors.DefaultLocale: {"Lab results ready", "Ticket {number}: your lab request has been fulfilled."},
		apperrors.LocaleArabic:  {"نتائج المختبر جاهزة", "التذكرة {number}: تم إنجاز طلب المختبر الخاص بك."},
	},
	TemplateReferralAccepted: {
		apperrors.DefaultLocale: {"Referral accepted", "Ticket {number}: your referral has been accepted."},
		apperrors.LocaleArabic:  {"تم قبول الإحالة", "التذكرة {number}: تم قبول إحالتك."},
	},
	TemplateReferralDeclined: {
		apperrors.DefaultLocale: {"Referral declined", "Ticket {number}: your referral was declined."},
		apperrors.LocaleArabic:  {"تم رفض الإحالة", "التذكرة {number}: تم رفض إحالتك."},
	},
	TemplateTicketReceived: {
		apperrors.DefaultLocale: {"New ticket", "Ticket {number} ({type}) was sent to you."},
		apperrors.LocaleArabic:  {"تذكرة جديدة", "تم إرسال التذكرة {number} ({type}) إليك."},
	},
	TemplateTicketMessage: {
		apperrors.DefaultLocale: {"New message", "There is a new message on ticket {number}."},
		apperrors.LocaleArabic:  {"رسالة جديدة", "توجد رسالة جديدة على التذكرة {number}."},
	},
}

// Render returns every locale variant of templateKey. Unknown keys render the
// key itself so the intent is still deliverable.
func Render(templateKey string, params map[string]string) map[string]model.NotificationMessage {
	variants, ok := templates[templateKey]
	if !ok {
		return map[string]model.NotificationMessage{
			apperrors.DefaultLocale: {Title: templateKey, Body: templateKey},
		}
	}
	out := make(map[string]model.NotificationMessage, len(variants))
	for locale, v := range variants {
		out[locale] = model.NotificationMessage{
			Title: fill(v.title, params),
			Body:  fill(v.body, params),
		}
	}
	return out
}

func fill(text string, params map[string]string) string {
	for name, value := range params {
		text = strings.ReplaceAll(text, "{"+name+"}", value)
	}
	return text
}
