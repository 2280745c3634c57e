package ticket

import (
	"github.com/jwalitptl/care-booking/internal/model"
)

type description struct {
	en string
	ar string
}

var descriptions = map[model.TicketAction]description{
	model.ActionCreated:         {"Ticket created", "تم إنشاء التذكرة"},
	model.ActionConfirm:         {"Appointment confirmed", "تم تأكيد الموعد"},
	model.ActionComplete:        {"Marked as completed", "تم وضع علامة مكتمل"},
	model.ActionCancel:          {"Cancelled", "تم الإلغاء"},
	model.ActionStartProcessing: {"Processing started", "بدأت المعالجة"},
	model.ActionMarkReady:       {"Ready for collection", "جاهز للاستلام"},
	model.ActionCollect:         {"Collected by patient", "تم الاستلام من قبل المريض"},
	model.ActionDispense:        {"Dispensed", "تم الصرف"},
	model.ActionCollectSample:   {"Sample collected", "تم جمع العينة"},
	model.ActionFulfill:         {"Results fulfilled", "تم إنجاز النتائج"},
	model.ActionAccept:          {"Referral accepted", "تم قبول الإحالة"},
	model.ActionDecline:         {"Referral declined", "تم رفض الإحالة"},
	model.ActionMessage:         {"New message", "رسالة جديدة"},
}

// describe returns the bilingual timeline text for action. A note is
// appended to both variants.
func describe(action model.TicketAction, note string) (string, string) {
	d, ok := descriptions[action]
	if !ok {
		d = description{string(action), string(action)}
	}
	if note == "" {
		return d.en, d.ar
	}
	return d.en + ": " + note, d.ar + ": " + note
}
