package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all worker metrics
type Metrics struct {
	// Session tracking
	ActiveSessions atomic.Int64
	TotalSessions  atomic.Uint64

	// Frame counters
	FramesSent     atomic.Uint64
	IntruderFrames atomic.Uint64
	BytesSent      atomic.Uint64

	// Error counters
	AcquireFailures atomic.Uint64
	DetectorErrors  atomic.Uint64
	StageFailures   *prometheus.CounterVec

	// Alerts
	AlertsPublished atomic.Uint64

	// Latency tracking
	ProcessLatencyMs atomic.Uint64 // last frame processing time in ms
	DetectLatency    prometheus.Histogram

	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		StageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intrusion_stage_failures_total",
			Help: "Pipeline stage failures by stage",
		}, []string{"stage"}),
		DetectLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "intrusion_detect_duration_seconds",
			Help:    "Detector latency per frame",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		}),
	}

	m.registerPrometheusMetrics()

	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.StageFailures,
		m.DetectLatency,
	)

	// Session metrics
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "intrusion_active_sessions",
			Help: "Number of connected WebSocket sessions",
		},
		func() float64 { return float64(m.ActiveSessions.Load()) },
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "intrusion_sessions_total",
			Help: "Total WebSocket sessions accepted",
		},
		func() float64 { return float64(m.TotalSessions.Load()) },
	))

	// Frame metrics
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "intrusion_frames_sent_total",
			Help: "Total annotated frames sent to clients",
		},
		func() float64 { return float64(m.FramesSent.Load()) },
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "intrusion_intruder_frames_total",
			Help: "Total frames sent with the intruder flag set",
		},
		func() float64 { return float64(m.IntruderFrames.Load()) },
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "intrusion_bytes_sent_total",
			Help: "Total JPEG bytes sent to clients",
		},
		func() float64 { return float64(m.BytesSent.Load()) },
	))

	// Error metrics
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "intrusion_acquire_failures_total",
			Help: "Total video sources that could not be opened",
		},
		func() float64 { return float64(m.AcquireFailures.Load()) },
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "intrusion_detector_errors_total",
			Help: "Total detector calls that failed",
		},
		func() float64 { return float64(m.DetectorErrors.Load()) },
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "intrusion_alerts_published_total",
			Help: "Total intrusion alerts published to NATS",
		},
		func() float64 { return float64(m.AlertsPublished.Load()) },
	))

	// Latency metrics
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "intrusion_process_latency_ms",
			Help: "Processing time of the last frame in milliseconds",
		},
		func() float64 { return float64(m.ProcessLatencyMs.Load()) },
	))
}

// SessionStarted counts a new session.
func (m *Metrics) SessionStarted() {
	m.ActiveSessions.Add(1)
	m.TotalSessions.Add(1)
}

func (m *Metrics) SessionEnded() {
	m.ActiveSessions.Add(-1)
}

// FrameSent records one delivered frame.
func (m *Metrics) FrameSent(bytes int, intruder bool, processing time.Duration) {
	m.FramesSent.Add(1)
	m.BytesSent.Add(uint64(bytes))
	if intruder {
		m.IntruderFrames.Add(1)
	}
	m.ProcessLatencyMs.Store(uint64(processing.Milliseconds()))
}

// StageFailed counts a failure of a named pipeline stage.
func (m *Metrics) StageFailed(stage string) {
	m.StageFailures.WithLabelValues(stage).Inc()
}

// ObserveDetect records one detector call.
func (m *Metrics) ObserveDetect(elapsed time.Duration, err error) {
	m.DetectLatency.Observe(elapsed.Seconds())
	if err != nil {
		m.DetectorErrors.Add(1)
	}
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
