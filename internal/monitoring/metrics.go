// Package monitoring exposes Prometheus metrics for the booking engine.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is nil-safe: a nil *Metrics records nothing.
type Metrics struct {
	ticketOps     *prometheus.CounterVec
	seatConflicts prometheus.Counter
	remoteOps     *prometheus.CounterVec
	remoteLatency *prometheus.HistogramVec
	refreshes     *prometheus.CounterVec
}

// New registers the booking metrics on reg. Pass prometheus.DefaultRegisterer
// in production and prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ticketOps: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cinema_ticket_operations_total",
				Help: "Ticket lifecycle operations by kind",
			},
			[]string{"operation"},
		),
		seatConflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "cinema_seat_conflicts_total",
			Help: "Reservations rejected because a seat was already taken",
		}),
		remoteOps: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cinema_remote_operations_total",
				Help: "Remote store calls by operation and outcome",
			},
			[]string{"operation", "status"},
		),
		remoteLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cinema_remote_operation_duration_seconds",
				Help:    "Remote store call latency",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"operation"},
		),
		refreshes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cinema_catalog_refresh_total",
				Help: "Read-through catalog refreshes by outcome",
			},
			[]string{"status"},
		),
	}
}

// TicketOp counts one of: created, cancelled, changed, used, change_failed.
func (m *Metrics) TicketOp(op string) {
	if m == nil {
		return
	}
	m.ticketOps.WithLabelValues(op).Inc()
}

func (m *Metrics) SeatConflict() {
	if m == nil {
		return
	}
	m.seatConflicts.Inc()
}

func (m *Metrics) RemoteCall(op string, err error, took time.Duration) {
	if m == nil {
		return
	}
	m.remoteOps.WithLabelValues(op, status(err)).Inc()
	m.remoteLatency.WithLabelValues(op).Observe(took.Seconds())
}

func (m *Metrics) Refresh(err error) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
