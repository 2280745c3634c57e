package model

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type ProviderKind string

const (
	ProviderKindDoctor     ProviderKind = "doctor"
	ProviderKindClinic     ProviderKind = "clinic"
	ProviderKindPharmacy   ProviderKind = "pharmacy"
	ProviderKindLaboratory ProviderKind = "laboratory"
)

// DayHours is one entry of a provider's weekly schedule. Nil pointers mean the
// value was not declared.
type DayHours struct {
	Open   *string `json:"open,omitempty"`
	Close  *string `json:"close,omitempty"`
	IsOpen *bool   `json:"isOpen,omitempty"`
}

// WorkingHours maps a day key ("monday".."sunday" or "weekdays") to its hours.
type WorkingHours map[string]DayHours

func (w WorkingHours) Value() (driver.Value, error) {
	if w == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(w)
}

func (w *WorkingHours) Scan(src interface{}) error {
	return scanJSON(src, w)
}

type Provider struct {
	Base
	OwnerUserID      *uuid.UUID     `json:"owner_user_id,omitempty" db:"owner_user_id"`
	Kind             ProviderKind   `json:"kind" db:"kind"`
	DisplayName      string         `json:"display_name" db:"display_name"`
	Specialty        string         `json:"specialty" db:"specialty"`
	Locale           string         `json:"locale" db:"locale"`
	WorkingHours     WorkingHours   `json:"working_hours" db:"working_hours"`
	UnavailableDates pq.StringArray `json:"unavailable_dates" db:"unavailable_dates"`
	AutoConfirm      bool           `json:"auto_confirm" db:"auto_confirm"`
}
