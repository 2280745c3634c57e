package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/jwalitptl/care-booking/internal/app"
	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/pkg/auth"
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

var (
	bloodTypes    = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}
	allergies     = []string{"penicillin", "peanuts", "latex", "shellfish", "pollen", "sulfa"}
	conditions    = []string{"hypertension", "asthma", "type 2 diabetes", "hypothyroidism", "migraine"}
	medications   = []string{"metformin", "lisinopril", "levothyroxine", "salbutamol", "atorvastatin"}
	relationships = []string{"spouse", "child", "parent", "sibling"}
	locales       = []string{"en", "ar"}
	weekdays      = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
)

type seeder struct {
	stores *app.Stores
	tokens *auth.TokenManager
	ttl    time.Duration
	out    io.Writer
}

func (s *seeder) run(ctx context.Context, providerCount, patientCount int) error {
	fmt.Fprintf(s.out, "seeding %d providers\n", providerCount)
	var sample *model.Provider
	for i := 0; i < providerCount; i++ {
		p, err := s.seedProvider(ctx, i)
		if err != nil {
			return fmt.Errorf("failed to seed provider: %w", err)
		}
		if sample == nil && p.Kind == model.ProviderKindDoctor {
			sample = p
		}
	}

	fmt.Fprintf(s.out, "seeding %d patients\n", patientCount)
	var samplePatient *model.PatientProfile
	for i := 0; i < patientCount; i++ {
		p, err := s.seedPatient(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed patient: %w", err)
		}
		if samplePatient == nil {
			samplePatient = p
		}
	}

	if samplePatient != nil {
		if err := s.printToken("patient", model.Actor{UserID: samplePatient.UserID, Role: model.RolePatient, Locale: samplePatient.Locale}); err != nil {
			return err
		}
	}
	if sample != nil {
		fmt.Fprintf(s.out, "sample doctor: %s (%s)\n", sample.DisplayName, sample.ID)
		if err := s.printToken("doctor", model.Actor{UserID: *sample.OwnerUserID, Role: model.RoleDoctor, ProviderID: &sample.ID, Locale: sample.Locale}); err != nil {
			return err
		}
	}

	fmt.Fprintln(s.out, "seed complete")
	return nil
}

func (s *seeder) seedProvider(ctx context.Context, i int) (*model.Provider, error) {
	owner := uuid.New()
	p := &model.Provider{
		OwnerUserID:  &owner,
		Locale:       gofakeit.RandomString(locales),
		WorkingHours: randomHours(),
		AutoConfirm:  gofakeit.Bool(),
	}

	// Mostly doctors, with a few of each fulfilling kind.
	switch i % 10 {
	case 7:
		p.Kind = model.ProviderKindPharmacy
		p.DisplayName = gofakeit.Company() + " Pharmacy"
	case 8:
		p.Kind = model.ProviderKindLaboratory
		p.DisplayName = gofakeit.Company() + " Labs"
	case 9:
		p.Kind = model.ProviderKindClinic
		p.DisplayName = gofakeit.Company() + " Clinic"
	default:
		p.Kind = model.ProviderKindDoctor
		p.DisplayName = "Dr. " + gofakeit.Name()
		p.Specialty = gofakeit.RandomString(specialties)
	}

	start := time.Now().AddDate(0, 0, 1)
	for n := gofakeit.Number(0, 3); n > 0; n-- {
		day := gofakeit.DateRange(start, start.AddDate(0, 2, 0))
		p.UnavailableDates = append(p.UnavailableDates, day.Format("2006-01-02"))
	}

	if err := s.stores.Providers.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *seeder) seedPatient(ctx context.Context) (*model.PatientProfile, error) {
	profile := &model.PatientProfile{
		UserID:         uuid.New(),
		FullName:       gofakeit.Name(),
		Locale:         gofakeit.RandomString(locales),
		ClinicalRecord: randomRecord(18, 80),
	}
	if err := s.stores.Records.UpsertPatientProfile(ctx, profile); err != nil {
		return nil, err
	}

	for n := gofakeit.Number(0, 2); n > 0; n-- {
		member := &model.FamilyMember{
			ID:             uuid.New(),
			OwnerUserID:    profile.UserID,
			FullName:       gofakeit.Name(),
			Relationship:   gofakeit.RandomString(relationships),
			ClinicalRecord: randomRecord(1, 90),
		}
		if err := s.stores.Records.CreateFamilyMember(ctx, member); err != nil {
			return nil, err
		}
	}
	return profile, nil
}

func (s *seeder) printToken(label string, actor model.Actor) error {
	token, err := s.tokens.Generate(actor, s.ttl)
	if err != nil {
		return fmt.Errorf("failed to sign %s token: %w", label, err)
	}
	fmt.Fprintf(s.out, "%s token (%s): %s\n", label, actor.UserID, token)
	return nil
}

func randomHours() model.WorkingHours {
	open := fmt.Sprintf("%02d:00", gofakeit.Number(7, 10))
	closing := fmt.Sprintf("%02d:00", gofakeit.Number(15, 20))
	hours := model.WorkingHours{}
	for _, day := range weekdays {
		isOpen := gofakeit.Number(0, 6) != 0
		if day == "friday" {
			isOpen = false
		}
		d := model.DayHours{IsOpen: &isOpen}
		if isOpen {
			o, c := open, closing
			d.Open, d.Close = &o, &c
		}
		hours[day] = d
	}
	return hours
}

func randomRecord(minAge, maxAge int) model.ClinicalRecord {
	now := time.Now()
	dob := gofakeit.DateRange(now.AddDate(-maxAge, 0, 0), now.AddDate(-minAge, 0, 0))
	height := float64(gofakeit.Number(150, 195))
	weight := float64(gofakeit.Number(50, 110))

	rec := model.ClinicalRecord{
		DateOfBirth: dob.Format("2006-01-02"),
		Gender:      gofakeit.RandomString([]string{"male", "female"}),
		BloodType:   gofakeit.RandomString(bloodTypes),
		Height:      &height,
		Weight:      &weight,
	}
	if gofakeit.Bool() {
		rec.Allergies = model.ClinicalList{gofakeit.RandomString(allergies)}
	}
	if gofakeit.Number(0, 3) == 0 {
		rec.ChronicConditions = model.ClinicalList{gofakeit.RandomString(conditions)}
		rec.CurrentMedications = model.ClinicalList{gofakeit.RandomString(medications)}
	}
	return rec
}
