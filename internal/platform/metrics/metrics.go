package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the DVR daemon.
type Metrics struct {
	registry                 *prometheus.Registry
	requestsTotal            prometheus.Counter
	recordingsStartedTotal   prometheus.Counter
	recordingsStoppedTotal   prometheus.Counter
	recordingsFinalizedTotal prometheus.Counter
	captureRestartsTotal     prometheus.Counter
	activeRecordings         prometheus.Gauge
	errorsTotal              prometheus.Counter
}

// New creates and registers Prometheus metrics for the DVR daemon.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dvr_requests_total",
		Help: "Total number of HTTP requests received",
	})
	recordingsStartedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dvr_recordings_started_total",
		Help: "Total number of recordings started (including resumed)",
	})
	recordingsStoppedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dvr_recordings_stopped_total",
		Help: "Total number of recordings stopped by operator request",
	})
	recordingsFinalizedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dvr_recordings_finalized_total",
		Help: "Total number of recordings finalized into the VOD archive",
	})
	captureRestartsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dvr_capture_restarts_total",
		Help: "Total number of capture process restarts after failure exits",
	})
	activeRecordings := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dvr_active_recordings",
		Help: "Number of recordings currently being captured",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dvr_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})

	registry.MustRegister(
		requestsTotal,
		recordingsStartedTotal,
		recordingsStoppedTotal,
		recordingsFinalizedTotal,
		captureRestartsTotal,
		activeRecordings,
		errorsTotal,
	)

	return &Metrics{
		registry:                 registry,
		requestsTotal:            requestsTotal,
		recordingsStartedTotal:   recordingsStartedTotal,
		recordingsStoppedTotal:   recordingsStoppedTotal,
		recordingsFinalizedTotal: recordingsFinalizedTotal,
		captureRestartsTotal:     captureRestartsTotal,
		activeRecordings:         activeRecordings,
		errorsTotal:              errorsTotal,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncRecordingsStarted increments the recordings started counter.
func (m *Metrics) IncRecordingsStarted() {
	m.recordingsStartedTotal.Inc()
}

// IncRecordingsStopped increments the recordings stopped counter.
func (m *Metrics) IncRecordingsStopped() {
	m.recordingsStoppedTotal.Inc()
}

// IncRecordingsFinalized increments the recordings finalized counter.
func (m *Metrics) IncRecordingsFinalized() {
	m.recordingsFinalizedTotal.Inc()
}

// IncCaptureRestarts increments the capture restart counter.
func (m *Metrics) IncCaptureRestarts() {
	m.captureRestartsTotal.Inc()
}

// SetActiveRecordings sets the active recordings gauge.
func (m *Metrics) SetActiveRecordings(n int) {
	m.activeRecordings.Set(float64(n))
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values
// (e.g. active recordings).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
