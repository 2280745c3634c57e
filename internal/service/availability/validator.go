// Package availability decides whether a requested slot falls inside a
// provider's declared weekly schedule.
package availability

import (
	"strings"
	"time"

	"github.com/jwalitptl/care-booking/internal/model"
)

// Reason identifies which rule rejected a slot.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonDateUnavailable Reason = "date_unavailable"
	ReasonClosedDay       Reason = "closed_day"
	ReasonOutsideHours    Reason = "outside_hours"
)

// WeekdaysKey is the fallback bucket used when a specific day is not declared.
const WeekdaysKey = "weekdays"

var dayKeys = [...]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// Decision is the outcome of Validate. Open and Close are the declared window
// as written by the provider, set only for ReasonOutsideHours.
type Decision struct {
	Admitted bool
	Reason   Reason
	Date     string
	Day      string
	Open     string
	Close    string
}

func admit() Decision {
	return Decision{Admitted: true}
}

// Validate checks date (YYYY-MM-DD) and clock (HH:MM) against hours and the
// unavailable date list. Missing or malformed input the rules cannot evaluate
// is admitted.
func Validate(hours model.WorkingHours, unavailable []string, date, clock string) Decision {
	date = strings.TrimSpace(date)
	for _, d := range unavailable {
		if strings.TrimSpace(d) == date && date != "" {
			return Decision{Reason: ReasonDateUnavailable, Date: date}
		}
	}

	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return admit()
	}
	key := dayKeys[day.Weekday()]

	record, ok := lookup(hours, key)
	if !ok {
		return admit()
	}

	if record.IsOpen != nil && !*record.IsOpen {
		return Decision{Reason: ReasonClosedDay, Date: date, Day: key}
	}

	if record.Open == nil || record.Close == nil {
		return admit()
	}
	open, okOpen := normalizeClock(*record.Open)
	closing, okClose := normalizeClock(*record.Close)
	requested, okReq := normalizeClock(clock)
	if !okOpen || !okClose || !okReq {
		return admit()
	}

	if requested < open || requested > closing {
		return Decision{
			Reason: ReasonOutsideHours,
			Date:   date,
			Day:    key,
			Open:   *record.Open,
			Close:  *record.Close,
		}
	}
	return admit()
}

func lookup(hours model.WorkingHours, key string) (model.DayHours, bool) {
	if len(hours) == 0 {
		return model.DayHours{}, false
	}
	if h, ok := hours[key]; ok {
		return h, true
	}
	for k, h := range hours {
		if strings.EqualFold(k, key) {
			return h, true
		}
	}
	for k, h := range hours {
		if strings.EqualFold(k, WeekdaysKey) {
			return h, true
		}
	}
	return model.DayHours{}, false
}

// normalizeClock turns "9:05" or "09:05" into "0905" so values compare
// lexically. Seconds, if present, are dropped.
func normalizeClock(clock string) (string, bool) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return "", false
	}
	hh, mm := parts[0], parts[1]
	if len(hh) == 1 {
		hh = "0" + hh
	}
	if len(hh) != 2 || len(mm) != 2 || !digits(hh) || !digits(mm) {
		return "", false
	}
	if hh > "24" || mm > "59" {
		return "", false
	}
	return hh + mm, true
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
