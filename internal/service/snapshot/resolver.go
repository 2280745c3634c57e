package snapshot

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/care-booking/internal/model"
)

// Person is a stored clinical record together with who it belongs to.
// FamilyMemberID is nil for the patient's own profile.
type Person struct {
	FamilyMemberID *uuid.UUID
	FullName       string
	Record         model.ClinicalRecord
}

// Resolve merges overrides onto the stored record field by field and derives
// the age as of now.
func Resolve(p Person, o model.ClinicalOverrides, now time.Time) model.ClinicalSnapshot {
	s := model.ClinicalSnapshot{
		FamilyMemberID:     p.FamilyMemberID,
		FullName:           p.FullName,
		DateOfBirth:        pick(o.DateOfBirth, p.Record.DateOfBirth),
		Gender:             pick(o.Gender, p.Record.Gender),
		BloodType:          pick(o.BloodType, p.Record.BloodType),
		Allergies:          pickList(o.Allergies, p.Record.Allergies),
		ChronicConditions:  pickList(o.ChronicConditions, p.Record.ChronicConditions),
		CurrentMedications: pickList(o.CurrentMedications, p.Record.CurrentMedications),
		Height:             pickNumber(o.Height, p.Record.Height),
		Weight:             pickNumber(o.Weight, p.Record.Weight),
	}
	if age, ok := Age(s.DateOfBirth, now); ok {
		s.Age = &age
	}
	return s
}

// ResolveGroup resolves one snapshot per person. Overrides apply to the first
// person only; the others use their stored records.
func ResolveGroup(people []Person, o model.ClinicalOverrides, now time.Time) []model.ClinicalSnapshot {
	out := make([]model.ClinicalSnapshot, 0, len(people))
	for i, p := range people {
		if i == 0 {
			out = append(out, Resolve(p, o, now))
			continue
		}
		out = append(out, Resolve(p, model.ClinicalOverrides{}, now))
	}
	return out
}

// Age returns the whole calendar years between dob (YYYY-MM-DD) and now. The
// age increments on the birthday itself.
func Age(dob string, now time.Time) (int, bool) {
	born, err := time.Parse("2006-01-02", strings.TrimSpace(dob))
	if err != nil {
		return 0, false
	}
	y1, m1, d1 := born.Date()
	y2, m2, d2 := now.Date()
	if now.Before(time.Date(y1, m1, d1, 0, 0, 0, 0, now.Location())) {
		return 0, false
	}

	age := y2 - y1
	if m2 < m1 || (m2 == m1 && d2 < d1) {
		age--
	}
	return age, true
}

func pick(override, stored string) string {
	if v := strings.TrimSpace(override); v != "" {
		return v
	}
	return strings.TrimSpace(stored)
}

func pickList(override, stored model.ClinicalList) string {
	if len(override) > 0 {
		return override.String()
	}
	return stored.String()
}

func pickNumber(override, stored *float64) *float64 {
	if override != nil && *override > 0 {
		return override
	}
	return stored
}
