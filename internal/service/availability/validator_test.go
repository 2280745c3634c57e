package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/care-booking/internal/model"
)

func str(s string) *string { return &s }
func boolean(b bool) *bool  { return &b }

// 2025-03-10 is a Monday, 2025-03-09 a Sunday.
const (
	monday = "2025-03-10"
	sunday = "2025-03-09"
)

func mondayNineToFive() model.WorkingHours {
	return model.WorkingHours{
		"monday": {IsOpen: boolean(true), Open: str("09:00"), Close: str("17:00")},
	}
}

func TestValidate_OutsideHours(t *testing.T) {
	hours := mondayNineToFive()

	assert.True(t, Validate(hours, nil, monday, "16:30").Admitted)

	d := Validate(hours, nil, monday, "17:30")
	assert.False(t, d.Admitted)
	assert.Equal(t, ReasonOutsideHours, d.Reason)
	assert.Equal(t, "09:00", d.Open)
	assert.Equal(t, "17:00", d.Close)
}

func TestValidate_BoundsInclusive(t *testing.T) {
	hours := mondayNineToFive()

	assert.True(t, Validate(hours, nil, monday, "09:00").Admitted)
	assert.True(t, Validate(hours, nil, monday, "17:00").Admitted)
	assert.False(t, Validate(hours, nil, monday, "08:59").Admitted)
}

func TestValidate_ClosedDayRejectsAnyTime(t *testing.T) {
	hours := model.WorkingHours{
		"sunday": {IsOpen: boolean(false), Open: str("09:00"), Close: str("17:00")},
	}

	for _, clock := range []string{"00:00", "10:00", "16:59", "23:59", ""} {
		d := Validate(hours, nil, sunday, clock)
		assert.False(t, d.Admitted, clock)
		assert.Equal(t, ReasonClosedDay, d.Reason)
		assert.Equal(t, "sunday", d.Day)
	}
}

func TestValidate_UnavailableDateOverridesOpenDay(t *testing.T) {
	d := Validate(mondayNineToFive(), []string{"2025-03-01", monday}, monday, "10:00")
	assert.False(t, d.Admitted)
	assert.Equal(t, ReasonDateUnavailable, d.Reason)
	assert.Equal(t, monday, d.Date)
}

func TestValidate_WeekdaysFallback(t *testing.T) {
	hours := model.WorkingHours{
		"weekdays": {IsOpen: boolean(true), Open: str("10:00"), Close: str("14:00")},
	}

	assert.True(t, Validate(hours, nil, monday, "11:00").Admitted)
	assert.False(t, Validate(hours, nil, monday, "15:00").Admitted)

	hours["monday"] = model.DayHours{IsOpen: boolean(true), Open: str("08:00"), Close: str("20:00")}
	assert.True(t, Validate(hours, nil, monday, "15:00").Admitted)
}

func TestValidate_AdmitsWhatItCannotEvaluate(t *testing.T) {
	tests := []struct {
		name  string
		hours model.WorkingHours
		date  string
		clock string
	}{
		{"no schedule", nil, monday, "03:00"},
		{"no record for day", model.WorkingHours{"tuesday": {IsOpen: boolean(false)}}, monday, "03:00"},
		{"open without bounds", model.WorkingHours{"monday": {IsOpen: boolean(true)}}, monday, "03:00"},
		{"missing time", mondayNineToFive(), monday, ""},
		{"malformed time", mondayNineToFive(), monday, "late"},
		{"malformed bound", model.WorkingHours{"monday": {Open: str("nine"), Close: str("17:00")}}, monday, "03:00"},
		{"malformed date", mondayNineToFive(), "10/03/2025", "03:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, Validate(tt.hours, nil, tt.date, tt.clock).Admitted)
		})
	}
}

func TestNormalizeClock(t *testing.T) {
	got, ok := normalizeClock("9:05")
	assert.True(t, ok)
	assert.Equal(t, "0905", got)

	got, ok = normalizeClock("17:00:00")
	assert.True(t, ok)
	assert.Equal(t, "1700", got)

	_, ok = normalizeClock("25:00")
	assert.False(t, ok)
}
