// Package app wires configuration into stores and services for the binaries.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/care-booking/internal/config"
	"github.com/jwalitptl/care-booking/internal/repository"
	"github.com/jwalitptl/care-booking/internal/repository/memory"
	"github.com/jwalitptl/care-booking/internal/repository/postgres"
)

type ProviderStore interface {
	repository.ProviderDirectory
	repository.ProviderWriter
}

type ClinicalRecordStore interface {
	repository.ClinicalRecordReader
	repository.ClinicalRecordWriter
}

// Stores holds one repository per aggregate. DB is nil for the memory driver.
type Stores struct {
	DB           *sqlx.DB
	Providers    ProviderStore
	Records      ClinicalRecordStore
	Appointments repository.AppointmentRepository
	Tickets      repository.TicketRepository
	Outbox       repository.OutboxRepository
}

// OpenStores connects the configured driver and applies migrations when
// enabled.
func OpenStores(ctx context.Context, cfg config.DatabaseConfig) (*Stores, error) {
	if cfg.Driver == "memory" {
		store := memory.NewStore()
		return &Stores{
			Providers:    store.Providers(),
			Records:      store,
			Appointments: store.Appointments(),
			Tickets:      store.Tickets(),
			Outbox:       store.Outbox(),
		}, nil
	}

	db, err := postgres.NewDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	return &Stores{
		DB:           db,
		Providers:    postgres.NewProviderRepository(db),
		Records:      postgres.NewClinicalRecordRepository(db),
		Appointments: postgres.NewAppointmentRepository(db),
		Tickets:      postgres.NewTicketRepository(db),
		Outbox:       postgres.NewOutboxRepository(db),
	}, nil
}

// Ping reports database reachability. The memory driver is always up.
func (s *Stores) Ping(ctx context.Context) error {
	if s.DB == nil {
		return nil
	}
	return s.DB.PingContext(ctx)
}

func (s *Stores) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}
