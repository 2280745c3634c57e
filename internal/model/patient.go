package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ClinicalList is a list-valued clinical field (allergies, conditions,
// medications). It decodes from a string array, an array of objects carrying
// a "name" or a single comma separated string.
type ClinicalList []string

func (l *ClinicalList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = splitClinical(s)
		return nil
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		out := make(ClinicalList, 0, len(raw))
		for _, item := range raw {
			name, err := clinicalItemName(item)
			if err != nil {
				return err
			}
			if name != "" {
				out = append(out, name)
			}
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("clinical list: unsupported JSON value %s", string(data))
	}
}

func clinicalItemName(item json.RawMessage) (string, error) {
	item = bytes.TrimSpace(item)
	if len(item) == 0 || bytes.Equal(item, []byte("null")) {
		return "", nil
	}
	if item[0] == '"' {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(item, &obj); err != nil {
		return "", fmt.Errorf("clinical list item: %w", err)
	}
	return strings.TrimSpace(obj.Name), nil
}

func splitClinical(s string) ClinicalList {
	var out ClinicalList
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// String joins the list the way it is displayed and stored on snapshots.
func (l ClinicalList) String() string {
	return strings.Join(l, ", ")
}

func (l ClinicalList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

func (l *ClinicalList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

// ClinicalRecord holds the stored clinical fields shared by a patient profile
// and a family member.
type ClinicalRecord struct {
	DateOfBirth        string       `json:"date_of_birth,omitempty" db:"date_of_birth"`
	Gender             string       `json:"gender,omitempty" db:"gender"`
	BloodType          string       `json:"blood_type,omitempty" db:"blood_type"`
	Allergies          ClinicalList `json:"allergies,omitempty" db:"allergies"`
	ChronicConditions  ClinicalList `json:"chronic_conditions,omitempty" db:"chronic_conditions"`
	CurrentMedications ClinicalList `json:"current_medications,omitempty" db:"current_medications"`
	Height             *float64     `json:"height,omitempty" db:"height"`
	Weight             *float64     `json:"weight,omitempty" db:"weight"`
}

// PatientProfile is keyed by the authenticated user id.
type PatientProfile struct {
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	FullName string    `json:"full_name" db:"full_name"`
	Locale   string    `json:"locale" db:"locale"`
	ClinicalRecord
}

type FamilyMember struct {
	ID           uuid.UUID `json:"id" db:"id"`
	OwnerUserID  uuid.UUID `json:"owner_user_id" db:"owner_user_id"`
	FullName     string    `json:"full_name" db:"full_name"`
	Relationship string    `json:"relationship" db:"relationship"`
	ClinicalRecord
}

// ClinicalOverrides are request-time values that win over stored ones when
// non-empty.
type ClinicalOverrides struct {
	DateOfBirth        string       `json:"date_of_birth,omitempty" binding:"omitempty,ymd"`
	Gender             string       `json:"gender,omitempty"`
	BloodType          string       `json:"blood_type,omitempty"`
	Allergies          ClinicalList `json:"allergies,omitempty"`
	ChronicConditions  ClinicalList `json:"chronic_conditions,omitempty"`
	CurrentMedications ClinicalList `json:"current_medications,omitempty"`
	Height             *float64     `json:"height,omitempty"`
	Weight             *float64     `json:"weight,omitempty"`
}

// ClinicalSnapshot is the immutable copy of clinical facts stamped onto an
// appointment at booking time.
type ClinicalSnapshot struct {
	FamilyMemberID     *uuid.UUID `json:"family_member_id,omitempty"`
	FullName           string     `json:"full_name,omitempty"`
	DateOfBirth        string     `json:"date_of_birth,omitempty"`
	Age                *int       `json:"age,omitempty"`
	Gender             string     `json:"gender,omitempty"`
	BloodType          string     `json:"blood_type,omitempty"`
	Allergies          string     `json:"allergies,omitempty"`
	ChronicConditions  string     `json:"chronic_conditions,omitempty"`
	CurrentMedications string     `json:"current_medications,omitempty"`
	Height             *float64   `json:"height,omitempty"`
	Weight             *float64   `json:"weight,omitempty"`
}

func (s ClinicalSnapshot) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *ClinicalSnapshot) Scan(src interface{}) error {
	return scanJSON(src, s)
}
