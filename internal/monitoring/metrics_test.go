package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMonitor(t *testing.T) {
	m := NewMonitor("local")

	before := testutil.ToFloat64(registrationOperations.WithLabelValues("register", "event_full"))
	m.TrackOperation("register", "event_full")
	m.TrackOperation("register", "event_full")
	assert.Equal(t, before+2, testutil.ToFloat64(registrationOperations.WithLabelValues("register", "event_full")))

	m.SetParticipants("e1", 7)
	assert.Equal(t, float64(7), testutil.ToFloat64(confirmedParticipants.WithLabelValues("e1")))
	m.SetParticipants("e1", 6)
	assert.Equal(t, float64(6), testutil.ToFloat64(confirmedParticipants.WithLabelValues("e1")))

	m.TrackLockWait(3 * time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(lockWait))
}
