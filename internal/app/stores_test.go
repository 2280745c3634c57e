package app

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/care-booking/internal/config"
	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/pkg/logger"
)

func TestOpenMemoryStores(t *testing.T) {
	ctx := context.Background()
	stores, err := OpenStores(ctx, config.DatabaseConfig{Driver: "memory"})
	require.NoError(t, err)
	defer stores.Close()

	assert.Nil(t, stores.DB)
	assert.NoError(t, stores.Ping(ctx))

	p := &model.Provider{Kind: model.ProviderKindDoctor, DisplayName: "Dr. Lina Saad"}
	require.NoError(t, stores.Providers.Create(ctx, p))
	got, err := stores.Providers.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Lina Saad", got.DisplayName)

	user := uuid.New()
	require.NoError(t, stores.Records.UpsertPatientProfile(ctx, &model.PatientProfile{UserID: user, FullName: "Rami"}))
	profile, err := stores.Records.GetPatientProfile(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "Rami", profile.FullName)
}

func TestNewServices(t *testing.T) {
	ctx := context.Background()
	stores, err := OpenStores(ctx, config.DatabaseConfig{Driver: "memory"})
	require.NoError(t, err)

	svc := NewServices(stores, config.BookingConfig{TicketPrefix: "CB"}, logger.Nop(), nil)
	require.NotNil(t, svc.Bookings)
	require.NotNil(t, svc.Tickets)

	_, err = svc.Tickets.GetTicket(ctx, uuid.New())
	assert.Error(t, err)
}
