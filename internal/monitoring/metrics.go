package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registrationOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_operations_total",
			Help: "Register and cancel attempts by outcome",
		},
		[]string{"operation", "outcome"},
	)

	confirmedParticipants = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "event_confirmed_participants",
			Help: "Confirmed registrations per event after the last recompute",
		},
		[]string{"event_id"},
	)

	lockWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "event_lock_wait_seconds",
			Help:    "Time spent waiting for the per-event lock",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"backend"},
	)
)

type Monitor struct {
	lockBackend string
}

func NewMonitor(lockBackend string) *Monitor {
	return &Monitor{lockBackend: lockBackend}
}

// TrackOperation counts one register/cancel attempt.
func (m *Monitor) TrackOperation(operation, outcome string) {
	registrationOperations.WithLabelValues(operation, outcome).Inc()
}

func (m *Monitor) SetParticipants(eventID string, n int) {
	confirmedParticipants.WithLabelValues(eventID).Set(float64(n))
}

func (m *Monitor) TrackLockWait(d time.Duration) {
	lockWait.WithLabelValues(m.lockBackend).Observe(d.Seconds())
}
