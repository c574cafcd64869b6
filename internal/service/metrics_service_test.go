package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsSnapshotAggregates(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/courses", http.StatusOK, 20*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodPost, "/api/v1/progress", http.StatusCreated, 40*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordProgress(20)
	m.RecordProgress(0)
	m.RecordPromotions("sweep", 3)
	m.RecordPromotions("recompute", 0)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 30.0, snap.AverageRequestDurationMs, 0.001)
	assert.Equal(t, uint64(2), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
	assert.InDelta(t, 2.0/3.0, snap.CacheHitRatio, 0.0001)
	assert.Equal(t, uint64(2), snap.ProgressReports)
	assert.Equal(t, uint64(3), snap.AttendancePromotions)
	assert.Equal(t, 20.0, testutil.ToFloat64(m.watchSeconds))
}

func TestMetricsDomainCounters(t *testing.T) {
	m := NewMetricsService()
	m.RecordEnrollment("limited")
	m.RecordEnrollment("limited")
	m.RecordRepair("scheduled")
	m.RecordPlaylistIngestion("success", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.enrollmentOutcomes.WithLabelValues("limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attendanceRepairs.WithLabelValues("scheduled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.playlistIngestions.WithLabelValues("success")))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "edutrack_enrollment_registrations_total")
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	m.RecordProgress(5)
	m.RecordEnrollment("registered")
	assert.Equal(t, MetricsSnapshot{}, m.Snapshot())

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
