package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegisterer(reg, "tutoring-test")

	t.Run("allocation outcomes", func(t *testing.T) {
		m.IncAllocationOutcome("assigned")
		m.IncAllocationOutcome("assigned")
		m.IncAllocationOutcome("all_busy")

		assert.Equal(t, 2.0, testutil.ToFloat64(m.allocationOutcomes.WithLabelValues("assigned")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.allocationOutcomes.WithLabelValues("all_busy")))
	})

	t.Run("commits by mode", func(t *testing.T) {
		m.IncCommit("claim", "conflict")
		assert.Equal(t, 1.0, testutil.ToFloat64(m.commitResults.WithLabelValues("claim", "conflict")))
	})

	t.Run("db errors counted", func(t *testing.T) {
		m.ObserveDBQuery("query", time.Millisecond, nil)
		m.ObserveDBQuery("query", time.Millisecond, errors.New("boom"))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.dbQueryErrors.WithLabelValues("query")))
	})

	t.Run("archived ignores non-positive", func(t *testing.T) {
		m.AddArchived(0)
		m.AddArchived(3)
		assert.Equal(t, 3.0, testutil.ToFloat64(m.archivedBookings))
	})

	t.Run("registered in registry", func(t *testing.T) {
		families, err := reg.Gather()
		require.NoError(t, err)
		assert.NotEmpty(t, families)
	})
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest("GET", "/health", 200, time.Millisecond)
		m.ObserveDBQuery("exec", time.Millisecond, nil)
		m.SetPoolStats("main", 1, 1, 0, 0)
		m.IncAllocationOutcome("assigned")
		m.IncCommit("claim", "committed")
		m.IncClaim("committed")
		m.IncNotification("telegram", "sent")
		m.AddArchived(1)
		m.IncRebroadcast()
	})
}
