package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClinicalListUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ClinicalList
	}{
		{"string array", `["penicillin", "peanuts"]`, ClinicalList{"penicillin", "peanuts"}},
		{"structured array", `[{"name": "asthma", "since": "2010"}, {"name": " diabetes "}]`, ClinicalList{"asthma", "diabetes"}},
		{"mixed array", `["aspirin", {"name": "metformin"}, null, ""]`, ClinicalList{"aspirin", "metformin"}},
		{"plain string", `"latex, dust"`, ClinicalList{"latex", "dust"}},
		{"null", `null`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ClinicalList
			require.NoError(t, json.Unmarshal([]byte(tt.input), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClinicalListRejectsNumbers(t *testing.T) {
	var got ClinicalList
	assert.Error(t, json.Unmarshal([]byte(`42`), &got))
}

func TestClinicalListString(t *testing.T) {
	assert.Equal(t, "penicillin, peanuts", ClinicalList{"penicillin", "peanuts"}.String())
	assert.Equal(t, "", ClinicalList(nil).String())
}

func TestClinicalOverridesDecode(t *testing.T) {
	var o ClinicalOverrides
	body := `{"blood_type": "A+", "allergies": [{"name": "penicillin"}], "current_medications": "insulin"}`
	require.NoError(t, json.Unmarshal([]byte(body), &o))

	assert.Equal(t, "A+", o.BloodType)
	assert.Equal(t, ClinicalList{"penicillin"}, o.Allergies)
	assert.Equal(t, ClinicalList{"insulin"}, o.CurrentMedications)
}

func TestWorkingHoursScan(t *testing.T) {
	var wh WorkingHours
	require.NoError(t, wh.Scan([]byte(`{"monday": {"isOpen": true, "open": "09:00", "close": "17:00"}}`)))

	day, ok := wh["monday"]
	require.True(t, ok)
	require.NotNil(t, day.Open)
	assert.Equal(t, "09:00", *day.Open)
	assert.True(t, *day.IsOpen)
}

func TestTicketStampTerminal(t *testing.T) {
	var tk Ticket
	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	tk.StampTerminal(TicketStatusFulfilled, at)
	require.NotNil(t, tk.FulfilledAt)
	assert.Nil(t, tk.CompletedAt)

	tk.StampTerminal(TicketStatusProcessing, at)
	assert.Nil(t, tk.CollectedAt)
}
