package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/care-booking/internal/repository"
)

type providerRepository struct {
	BaseRepository
}

type clinicalRecordRepository struct {
	BaseRepository
}

type appointmentRepository struct {
	BaseRepository
}

type ticketRepository struct {
	BaseRepository
}

type outboxRepository struct {
	BaseRepository
}

// ProviderRepository is both the directory used by bookings and the writer
// used by seeding.
type ProviderRepository interface {
	repository.ProviderDirectory
	repository.ProviderWriter
}

// ClinicalRecordRepository reads and writes patient profiles and family
// members.
type ClinicalRecordRepository interface {
	repository.ClinicalRecordReader
	repository.ClinicalRecordWriter
}

func NewProviderRepository(db *sqlx.DB) ProviderRepository {
	return &providerRepository{NewBaseRepository(db)}
}

func NewClinicalRecordRepository(db *sqlx.DB) ClinicalRecordRepository {
	return &clinicalRecordRepository{NewBaseRepository(db)}
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{NewBaseRepository(db)}
}

func NewTicketRepository(db *sqlx.DB) repository.TicketRepository {
	return &ticketRepository{NewBaseRepository(db)}
}

func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &outboxRepository{NewBaseRepository(db)}
}
