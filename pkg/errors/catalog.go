package errors

import "strings"

const (
	DefaultLocale = "en"
	LocaleArabic  = "ar"
)

// Message keys
const (
	KeyNotFound          = "common.not_found"
	KeyBadRequest        = "common.bad_request"
	KeyInternal          = "common.internal"
	KeyForbidden         = "common.forbidden"
	KeyUnauthorized      = "auth.unauthorized"
	KeyInvalidRequest    = "validation.invalid_request"
	KeyClosedDay         = "booking.closed_day"
	KeyDateUnavailable   = "booking.date_unavailable"
	KeyOutsideHours      = "booking.outside_hours"
	KeyDuplicateBooking  = "booking.duplicate"
	KeyChooseProvider    = "booking.choose_provider_from_search"
	KeyBookingFailed     = "booking.persistence_failed"
	KeyFamilyMember      = "booking.family_member_not_found"
	KeyNotCancellable    = "booking.not_cancellable"
	KeyIllegalTransition = "ticket.illegal_transition"
	KeyStaleTicket       = "ticket.stale"
	KeyCashNotAllowed    = "ticket.cash_not_allowed"
	KeyRoleNotAllowed    = "ticket.role_not_allowed"
	KeyUnknownTicketType = "ticket.unknown_type"
	KeyEmptyMessage      = "ticket.empty_message"
	KeyTooManyRequests   = "common.too_many_requests"
)

var catalog = map[string]map[string]string{
	KeyNotFound: {
		DefaultLocale: "{resource} not found",
		LocaleArabic:  "{resource} غير موجود",
	},
	KeyBadRequest: {
		DefaultLocale: "Bad request: {detail}",
		LocaleArabic:  "طلب غير صالح: {detail}",
	},
	KeyInternal: {
		DefaultLocale: "Internal server error",
		LocaleArabic:  "خطأ داخلي في الخادم",
	},
	KeyForbidden: {
		DefaultLocale: "You are not allowed to perform this action",
		LocaleArabic:  "غير مسموح لك بتنفيذ هذا الإجراء",
	},
	KeyUnauthorized: {
		DefaultLocale: "Please sign in to continue",
		LocaleArabic:  "يرجى تسجيل الدخول للمتابعة",
	},
	KeyInvalidRequest: {
		DefaultLocale: "Invalid request: {detail}",
		LocaleArabic:  "طلب غير صالح: {detail}",
	},
	KeyClosedDay: {
		DefaultLocale: "The provider is closed on {day}. Please choose another day.",
		LocaleArabic:  "مقدم الخدمة مغلق يوم {day}. يرجى اختيار يوم آخر.",
	},
	KeyDateUnavailable: {
		DefaultLocale: "The provider is unavailable on {date}. Please choose another date.",
		LocaleArabic:  "مقدم الخدمة غير متاح بتاريخ {date}. يرجى اختيار تاريخ آخر.",
	},
	KeyOutsideHours: {
		DefaultLocale: "Outside working hours ({open}–{close}). Please choose another time.",
		LocaleArabic:  "خارج ساعات العمل ({open}–{close}). يرجى اختيار وقت آخر.",
	},
	KeyDuplicateBooking: {
		DefaultLocale: "You already have a booking for this slot",
		LocaleArabic:  "لديك حجز بالفعل في هذا الموعد",
	},
	KeyChooseProvider: {
		DefaultLocale: "Please choose a doctor from search",
		LocaleArabic:  "يرجى اختيار طبيب من نتائج البحث",
	},
	KeyBookingFailed: {
		DefaultLocale: "The booking could not be saved",
		LocaleArabic:  "تعذر حفظ الحجز",
	},
	KeyFamilyMember: {
		DefaultLocale: "Family member not found",
		LocaleArabic:  "فرد العائلة غير موجود",
	},
	KeyNotCancellable: {
		DefaultLocale: "This appointment can no longer be cancelled",
		LocaleArabic:  "لم يعد بالإمكان إلغاء هذا الموعد",
	},
	KeyIllegalTransition: {
		DefaultLocale: "Action {action} is not allowed while the ticket is {status}",
		LocaleArabic:  "الإجراء {action} غير مسموح بينما حالة التذكرة {status}",
	},
	KeyStaleTicket: {
		DefaultLocale: "The ticket was updated by someone else. Please refresh and try again.",
		LocaleArabic:  "تم تحديث التذكرة من قبل شخص آخر. يرجى التحديث والمحاولة مرة أخرى.",
	},
	KeyCashNotAllowed: {
		DefaultLocale: "Cash payment can only be confirmed when the sample is collected",
		LocaleArabic:  "لا يمكن تأكيد الدفع النقدي إلا عند جمع العينة",
	},
	KeyRoleNotAllowed: {
		DefaultLocale: "Your role cannot perform {action} on this ticket",
		LocaleArabic:  "لا يمكن لدورك تنفيذ {action} على هذه التذكرة",
	},
	KeyUnknownTicketType: {
		DefaultLocale: "Unknown ticket type {type}",
		LocaleArabic:  "نوع تذكرة غير معروف {type}",
	},
	KeyEmptyMessage: {
		DefaultLocale: "Message body cannot be empty",
		LocaleArabic:  "لا يمكن أن يكون نص الرسالة فارغاً",
	},
	KeyTooManyRequests: {
		DefaultLocale: "Too many requests. Please slow down",
		LocaleArabic:  "طلبات كثيرة جداً. يرجى التمهل",
	},
}

// Localize renders key in locale, falling back to English and finally to the
// key itself. {name} placeholders are replaced from params.
func Localize(key, locale string, params map[string]string) string {
	variants, ok := catalog[key]
	if !ok {
		return key
	}
	text, ok := variants[NormalizeLocale(locale)]
	if !ok {
		text = variants[DefaultLocale]
	}
	for name, value := range params {
		text = strings.ReplaceAll(text, "{"+name+"}", value)
	}
	return text
}

// NormalizeLocale reduces tags like "ar-EG" or "en_US" to a supported locale.
func NormalizeLocale(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(locale, "-_,;"); i >= 0 {
		locale = locale[:i]
	}
	if locale == LocaleArabic {
		return LocaleArabic
	}
	return DefaultLocale
}
