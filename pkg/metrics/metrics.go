package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	// Booking metrics
	BookingsTotal        *prometheus.CounterVec
	TicketTransitions    *prometheus.CounterVec
	NotificationsDropped *prometheus.CounterVec

	// Outbox related metrics
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxDeadLettered      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram
	OutboxRetries           *prometheus.CounterVec

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics with the default
// registerer.
func NewMetrics(namespace, subsystem string) *Metrics {
	m := New(namespace, subsystem)
	m.MustRegister(prometheus.DefaultRegisterer)
	return m
}

// New creates unregistered metrics.
func New(namespace, subsystem string) *Metrics {
	return &Metrics{
		BookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		TicketTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "ticket_transitions_total",
			Help:      "Ticket state machine transitions by type, action and outcome",
		}, []string{"type", "action", "outcome"}),
		NotificationsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_dropped_total",
			Help:      "Notification intents that could not be enqueued",
		}, []string{"template"}),
		OutboxEventsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_events_processed_total",
			Help:      "Total number of successfully processed outbox events",
		}),
		OutboxEventsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_events_failed_total",
			Help:      "Total number of failed outbox publish attempts",
		}),
		OutboxDeadLettered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_events_dead_lettered_total",
			Help:      "Total number of outbox events moved to the dead letter table",
		}),
		OutboxProcessingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_processing_duration_seconds",
			Help:      "Time spent processing one outbox batch",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		OutboxRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_retry_attempts_total",
			Help:      "Total number of retry attempts for outbox events",
		}, []string{"event_type"}),
		DatabaseOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.BookingsTotal,
		m.TicketTransitions,
		m.NotificationsDropped,
		m.OutboxEventsProcessed,
		m.OutboxEventsFailed,
		m.OutboxDeadLettered,
		m.OutboxProcessingLatency,
		m.OutboxRetries,
		m.DatabaseOperations,
	}
}

// MustRegister registers every collector with reg.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.collectors()...)
}

func (m *Metrics) Booking(outcome string) {
	if m == nil {
		return
	}
	m.BookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Transition(ticketType, action, outcome string) {
	if m == nil {
		return
	}
	m.TicketTransitions.WithLabelValues(ticketType, action, outcome).Inc()
}

func (m *Metrics) NotificationDropped(template string) {
	if m == nil {
		return
	}
	m.NotificationsDropped.WithLabelValues(template).Inc()
}

func (m *Metrics) OutboxProcessed() {
	if m == nil {
		return
	}
	m.OutboxEventsProcessed.Inc()
}

func (m *Metrics) OutboxFailed(eventType string) {
	if m == nil {
		return
	}
	m.OutboxEventsFailed.Inc()
	m.OutboxRetries.WithLabelValues(eventType).Inc()
}

func (m *Metrics) OutboxDeadLetter() {
	if m == nil {
		return
	}
	m.OutboxDeadLettered.Inc()
}

func (m *Metrics) DatabaseOperation(operation, status string) {
	if m == nil {
		return
	}
	m.DatabaseOperations.WithLabelValues(operation, status).Inc()
}

// BatchTimer times one outbox batch. The returned func records the duration.
func (m *Metrics) BatchTimer() func() {
	if m == nil {
		return func() {}
	}
	timer := prometheus.NewTimer(m.OutboxProcessingLatency)
	return func() { timer.ObserveDuration() }
}
