package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/GriffinCanCode/AgentOS/harness/internal/harness"
	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/native"
	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/stream"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Execution metrics
	Executions        *prometheus.CounterVec
	ExecutionDuration *prometheus.HistogramVec
	StreamLines       *prometheus.CounterVec
	StreamEvents      *prometheus.CounterVec

	// Native library metrics
	Preloads         *prometheus.CounterVec
	BridgeCopies     *prometheus.CounterVec
	LibrariesLoaded  prometheus.Gauge
	BridgeResolution *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current metric values for the JSON API
type Snapshot struct {
	TotalRequests   int64            `json:"totalRequests"`
	TotalErrors     int64            `json:"totalErrors"`
	Executions      map[string]int64 `json:"executions"`
	LibrariesLoaded int              `json:"librariesLoaded"`
	UptimeSeconds   float64          `json:"uptimeSeconds"`
}

var _ harness.Observer = (*Metrics)(nil)

// NewMetrics creates a metrics collector registered with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		startTime: time.Now(),
		snapshot:  Snapshot{Executions: make(map[string]int64)},

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harness_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harness_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harness_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harness_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Execution metrics
		Executions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harness_executions_total",
				Help: "Total number of executions by terminal status",
			},
			[]string{"status", "isolation"},
		),
		ExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harness_execution_duration_seconds",
				Help:    "Execution duration from request start to decision",
				Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 20, 60},
			},
			[]string{"isolation"},
		),
		StreamLines: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harness_stream_lines_total",
				Help: "Lines of script output by stream",
			},
			[]string{"stream"},
		),
		StreamEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harness_stream_events_total",
				Help: "Output events relayed live to clients by stream",
			},
			[]string{"stream"},
		),

		// Native library metrics
		Preloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harness_native_preload_total",
				Help: "Native library preload attempts by outcome",
			},
			[]string{"outcome"},
		),
		BridgeCopies: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harness_native_bridge_copies_total",
				Help: "Bridge copies of the aliased native library by outcome",
			},
			[]string{"outcome"},
		),
		BridgeResolution: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harness_native_bridge_runs_total",
				Help: "Bridge runs by whether the library was found",
			},
			[]string{"found"},
		),
		LibrariesLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "harness_native_libraries_loaded",
				Help: "Native libraries in the loaded library registry",
			},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "harness_ws_connections_active",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harness_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "harness_uptime_seconds",
			Help: "Uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// ObserveExecution records a finished execution
func (m *Metrics) ObserveExecution(status harness.Status, isolation string, duration time.Duration) {
	m.Executions.WithLabelValues(string(status), isolation).Inc()
	m.ExecutionDuration.WithLabelValues(isolation).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.Executions[string(status)]++
	m.mu.Unlock()
}

// ObserveStreamLines records lines written to one stream
func (m *Metrics) ObserveStreamLines(stream string, lines int) {
	if lines > 0 {
		m.StreamLines.WithLabelValues(stream).Add(float64(lines))
	}
}

// EventSink returns a sink that counts live events by stream
func (m *Metrics) EventSink() stream.Sink {
	return stream.SinkFunc(func(ev stream.Event) error {
		m.StreamEvents.WithLabelValues(ev.Stream).Inc()
		return nil
	})
}

// ObservePreload records one preload pass
func (m *Metrics) ObservePreload(report native.Report, loadedTotal int) {
	for _, a := range report.Attempts {
		m.Preloads.WithLabelValues(string(a.Outcome)).Inc()
	}
	m.LibrariesLoaded.Set(float64(loadedTotal))

	m.mu.Lock()
	m.snapshot.LibrariesLoaded = loadedTotal
	m.mu.Unlock()
}

// ObserveBridge records one bridge run
func (m *Metrics) ObserveBridge(report native.BridgeReport) {
	found := "false"
	if report.Found != "" {
		found = "true"
	}
	m.BridgeResolution.WithLabelValues(found).Inc()
	for _, c := range report.Copies {
		m.BridgeCopies.WithLabelValues(string(c.Outcome)).Inc()
	}
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

// Snapshot returns a copy of the tracked values
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.snapshot
	out.Executions = make(map[string]int64, len(m.snapshot.Executions))
	for k, v := range m.snapshot.Executions {
		out.Executions[k] = v
	}
	out.UptimeSeconds = time.Since(m.startTime).Seconds()
	return out
}
