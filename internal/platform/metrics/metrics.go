package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the mux recorder.
type Metrics struct {
	registry             *prometheus.Registry
	requestsTotal        prometheus.Counter
	errorsTotal          prometheus.Counter
	recordingsStarted    prometheus.Counter
	pipelineFailures     prometheus.Counter
	buffersPushed        *prometheus.CounterVec
	bytesPushed          *prometheus.CounterVec
	buffersDropped       *prometheus.CounterVec
	keyframesTotal       prometheus.Counter
	silenceInsertedTotal prometheus.Counter
	drainTimeouts        prometheus.Counter
	recordingActive      prometheus.Gauge
}

// New creates and registers Prometheus metrics for the recorder.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mux_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mux_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	recordingsStarted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mux_recordings_started_total",
		Help: "Total number of mux pipelines started",
	})
	pipelineFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mux_pipeline_failures_total",
		Help: "Total number of mux pipeline constructions that failed",
	})
	buffersPushed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mux_buffers_pushed_total",
		Help: "Total number of buffers forwarded to the pipeline",
	}, []string{"stream"})
	bytesPushed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mux_bytes_pushed_total",
		Help: "Total number of payload bytes forwarded to the pipeline",
	}, []string{"stream"})
	buffersDropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mux_buffers_dropped_total",
		Help: "Total number of buffers the pipeline did not accept",
	}, []string{"stream"})
	keyframesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mux_keyframes_total",
		Help: "Total number of random-access video units forwarded",
	})
	silenceInsertedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mux_silence_inserted_seconds_total",
		Help: "Total seconds of silence inserted ahead of late audio",
	})
	drainTimeouts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mux_drain_timeouts_total",
		Help: "Total number of stops that gave up waiting for end of stream",
	})
	recordingActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mux_recording_active",
		Help: "1 while a mux pipeline is recording, 0 otherwise",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		recordingsStarted,
		pipelineFailures,
		buffersPushed,
		bytesPushed,
		buffersDropped,
		keyframesTotal,
		silenceInsertedTotal,
		drainTimeouts,
		recordingActive,
	)

	return &Metrics{
		registry:             registry,
		requestsTotal:        requestsTotal,
		errorsTotal:          errorsTotal,
		recordingsStarted:    recordingsStarted,
		pipelineFailures:     pipelineFailures,
		buffersPushed:        buffersPushed,
		bytesPushed:          bytesPushed,
		buffersDropped:       buffersDropped,
		keyframesTotal:       keyframesTotal,
		silenceInsertedTotal: silenceInsertedTotal,
		drainTimeouts:        drainTimeouts,
		recordingActive:      recordingActive,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncRecordingsStarted increments the started recordings counter.
func (m *Metrics) IncRecordingsStarted() {
	m.recordingsStarted.Inc()
}

// IncPipelineFailures increments the pipeline construction failure counter.
func (m *Metrics) IncPipelineFailures() {
	m.pipelineFailures.Inc()
}

// ObserveBuffer records one buffer of size bytes forwarded on stream.
func (m *Metrics) ObserveBuffer(stream string, size int) {
	m.buffersPushed.WithLabelValues(stream).Inc()
	m.bytesPushed.WithLabelValues(stream).Add(float64(size))
}

// IncBuffersDropped increments the dropped buffer counter for stream.
func (m *Metrics) IncBuffersDropped(stream string) {
	m.buffersDropped.WithLabelValues(stream).Inc()
}

// IncKeyframes increments the keyframe counter.
func (m *Metrics) IncKeyframes() {
	m.keyframesTotal.Inc()
}

// AddSilence adds inserted silence, in seconds.
func (m *Metrics) AddSilence(seconds float64) {
	m.silenceInsertedTotal.Add(seconds)
}

// IncDrainTimeouts increments the drain timeout counter.
func (m *Metrics) IncDrainTimeouts() {
	m.drainTimeouts.Inc()
}

// SetRecordingActive sets the recording gauge.
func (m *Metrics) SetRecordingActive(active bool) {
	if active {
		m.recordingActive.Set(1)
		return
	}
	m.recordingActive.Set(0)
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
