package app

import (
	"time"

	"github.com/jwalitptl/care-booking/internal/config"
	"github.com/jwalitptl/care-booking/internal/service/booking"
	"github.com/jwalitptl/care-booking/internal/service/event"
	"github.com/jwalitptl/care-booking/internal/service/notification"
	"github.com/jwalitptl/care-booking/internal/service/snapshot"
	"github.com/jwalitptl/care-booking/internal/service/ticket"
	"github.com/jwalitptl/care-booking/pkg/logger"
	"github.com/jwalitptl/care-booking/pkg/metrics"
)

type Services struct {
	Bookings *booking.Service
	Tickets  *ticket.Service
}

func NewServices(stores *Stores, cfg config.BookingConfig, log *logger.Logger, m *metrics.Metrics) *Services {
	notifier := notification.NewService(event.NewService(stores.Outbox))
	tickets := ticket.NewService(
		stores.Tickets,
		stores.Providers,
		notifier,
		ticket.NewNumberGenerator(cfg.TicketPrefix, time.Now),
		log.WithFields(map[string]interface{}{"component": "tickets"}),
		ticket.WithMetrics(m),
	)
	bookings := booking.NewService(
		stores.Providers,
		stores.Appointments,
		tickets,
		snapshot.NewService(stores.Records, time.Now),
		notifier,
		booking.WithMetrics(m),
		booking.WithLogger(log.WithFields(map[string]interface{}{"component": "bookings"})),
	)
	return &Services{Bookings: bookings, Tickets: tickets}
}
