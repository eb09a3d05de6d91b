package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.AuthzDecision("allowed")
	m.AuthzDecision("allowed")
	m.AuthzDecision("tenant_mismatch")
	m.SlotConflict("create")
	m.PermissionCache(true)
	m.PermissionCache(false)
	m.ObserveHTTP("GET", "/api/v1/appointments", 200, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.authzDecisionsTotal.WithLabelValues("allowed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authzDecisionsTotal.WithLabelValues("tenant_mismatch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.slotConflictsTotal.WithLabelValues("create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.permCacheTotal.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/api/v1/appointments", "200")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AuthzDecision("allowed")
		m.SlotConflict("create")
		m.PermissionCache(true)
		m.ObserveHTTP("GET", "/", 200, time.Second)
	})
}

func TestNewTwiceOnSameRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(reg)
	require.NoError(t, err)
	second, err := New(reg)
	require.NoError(t, err)

	second.SlotConflict("update")
	assert.Equal(t, 1.0, testutil.ToFloat64(first.slotConflictsTotal.WithLabelValues("update")))
}
