package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.IncRequests()
	m.ObservePoll("state", false)
	m.IncAlarmsFired("start")

	refreshed := false
	rec := httptest.NewRecorder()
	m.Handler(func() {
		refreshed = true
		m.SetBackendConnected(true)
	}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.True(t, refreshed)
	assert.Contains(t, string(body), "pausetime_http_requests_total 1")
	assert.Contains(t, string(body), `pausetime_backend_polls_total{endpoint="state",result="error"} 1`)
	assert.Contains(t, string(body), `pausetime_alarms_fired_total{action="start"} 1`)
	assert.Contains(t, string(body), "pausetime_backend_connected 1")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncRequests()
		m.ObservePoll("state", true)
		m.SetPlaybackActive(true)
	})
}
