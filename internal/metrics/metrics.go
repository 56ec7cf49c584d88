package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the player agent.
// All methods are safe on a nil receiver so components can run without metrics.
type Metrics struct {
	registry         *prometheus.Registry
	requestsTotal    prometheus.Counter
	errorsTotal      prometheus.Counter
	pollsTotal       *prometheus.CounterVec
	ezanInterrupts   prometheus.Counter
	alarmsFired      *prometheus.CounterVec
	sourceSwitches   prometheus.Counter
	nativeRejections prometheus.Counter
	playbackActive   prometheus.Gauge
	backendConnected prometheus.Gauge
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pausetime_http_requests_total",
			Help: "Total number of panel HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pausetime_http_errors_total",
			Help: "Total number of panel HTTP responses with status >= 400",
		}),
		pollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pausetime_backend_polls_total",
			Help: "Backend polls by endpoint and result",
		}, []string{"endpoint", "result"}),
		ezanInterrupts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pausetime_ezan_interrupts_total",
			Help: "Number of ezan suspensions started",
		}),
		alarmsFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pausetime_alarms_fired_total",
			Help: "Music alarms fired by action",
		}, []string{"action"}),
		sourceSwitches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pausetime_source_switches_total",
			Help: "Number of playback source switches",
		}),
		nativeRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pausetime_native_play_rejections_total",
			Help: "Play commands rejected by a native player",
		}),
		playbackActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pausetime_playback_active",
			Help: "1 when playback is allowed (backend active and no ezan)",
		}),
		backendConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pausetime_backend_connected",
			Help: "1 when the last state poll succeeded",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.pollsTotal,
		m.ezanInterrupts,
		m.alarmsFired,
		m.sourceSwitches,
		m.nativeRejections,
		m.playbackActive,
		m.backendConnected,
	)
	return m
}

func (m *Metrics) IncRequests() {
	if m != nil {
		m.requestsTotal.Inc()
	}
}

func (m *Metrics) IncErrors() {
	if m != nil {
		m.errorsTotal.Inc()
	}
}

// ObservePoll records one backend poll. endpoint is "state", "prayer_times" or "schedules".
func (m *Metrics) ObservePoll(endpoint string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.pollsTotal.WithLabelValues(endpoint, result).Inc()
}

func (m *Metrics) IncEzanInterrupts() {
	if m != nil {
		m.ezanInterrupts.Inc()
	}
}

func (m *Metrics) IncAlarmsFired(action string) {
	if m != nil {
		m.alarmsFired.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) IncSourceSwitches() {
	if m != nil {
		m.sourceSwitches.Inc()
	}
}

func (m *Metrics) IncNativeRejections() {
	if m != nil {
		m.nativeRejections.Inc()
	}
}

func (m *Metrics) SetPlaybackActive(active bool) {
	if m != nil {
		m.playbackActive.Set(boolGauge(active))
	}
}

func (m *Metrics) SetBackendConnected(connected bool) {
	if m != nil {
		m.backendConnected.Set(boolGauge(connected))
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
