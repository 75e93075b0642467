package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRequest_CountsAndErrors(t *testing.T) {
	m := New()
	m.RecordRequest("GET /api/issues", 5*time.Millisecond, true)
	m.RecordRequest("GET /api/issues", 10*time.Millisecond, false)

	snap := m.Snapshot()
	require.Len(t, snap.Routes, 1)
	assert.Equal(t, int64(2), snap.Routes[0].TotalCount)
	assert.Equal(t, int64(1), snap.Routes[0].ErrorCount)
}

func TestRecordRequest_SlowCallback(t *testing.T) {
	m := New()
	m.SetSlowThreshold(50 * time.Millisecond)

	var called bool
	var gotRoute string
	m.SetSlowCallback(func(route string, latency time.Duration, timestamp time.Time) {
		called = true
		gotRoute = route
	})

	m.RecordRequest("GET /api/issues", 5*time.Millisecond, true)
	assert.False(t, called)

	m.RecordRequest("GET /api/issues", 100*time.Millisecond, true)
	assert.True(t, called)
	assert.Equal(t, "GET /api/issues", gotRoute)

	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.Routes[0].SlowCount)
}

func TestSnapshot_LatencyPercentiles(t *testing.T) {
	m := New()
	for i := 1; i <= 100; i++ {
		m.RecordRequest("GET /api/issues", time.Duration(i)*time.Millisecond, true)
	}

	snap := m.Snapshot()
	require.Len(t, snap.Routes, 1)
	lat := snap.Routes[0].Latency
	assert.InDelta(t, 1, lat.MinMS, 0.01)
	assert.InDelta(t, 100, lat.MaxMS, 0.01)
	assert.Greater(t, lat.P95MS, lat.P50MS)
}

func TestSnapshot_OrdersByVolumeDescending(t *testing.T) {
	m := New()
	m.RecordRequest("GET /api/health", time.Millisecond, true)
	m.RecordRequest("GET /api/issues", time.Millisecond, true)
	m.RecordRequest("GET /api/issues", time.Millisecond, true)

	snap := m.Snapshot()
	require.Len(t, snap.Routes, 2)
	assert.Equal(t, "GET /api/issues", snap.Routes[0].Route)
}
