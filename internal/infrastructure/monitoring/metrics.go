package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// App instance metrics
	InstancesActive  prometheus.Gauge
	InstancesTotal   prometheus.Counter
	PhaseTransitions *prometheus.CounterVec
	ResourceFetches  *prometheus.CounterVec
	FetchDuration    prometheus.Histogram
	DisplayModes     *prometheus.CounterVec

	// Bridge metrics
	BridgeRequests *prometheus.CounterVec
	BridgeDuration *prometheus.HistogramVec

	// Agent backend metrics
	AgentCalls    *prometheus.CounterVec
	AgentDuration *prometheus.HistogramVec

	// Sandbox proxy metrics
	ProxyRequests *prometheus.CounterVec
	GuestsStaged  prometheus.Counter
	GuestsEvicted prometheus.Counter

	// Session metrics
	SessionsActive prometheus.Gauge

	// Guest channel metrics
	ChannelConnections prometheus.Gauge
	ChannelFrames      *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests   int64
	TotalErrors     int64
	ActiveInstances int64
	ActiveChannels  int64
	TotalDuration   float64 // sum of all request durations
	RequestCount    int64   // count for averaging
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "host_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "host_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "host_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "host_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// App instance metrics
		InstancesActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "host_app_instances_active",
				Help: "Number of active app instances",
			},
		),
		InstancesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "host_app_instances_total",
				Help: "Total number of app instances created",
			},
		),
		PhaseTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "host_app_phase_transitions_total",
				Help: "Total number of app lifecycle phase transitions",
			},
			[]string{"phase"},
		),
		ResourceFetches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "host_resource_fetches_total",
				Help: "Total number of UI resource fetch attempts",
			},
			[]string{"status"},
		),
		FetchDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "host_resource_fetch_duration_seconds",
				Help:    "UI resource fetch duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
		DisplayModes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "host_display_mode_changes_total",
				Help: "Total number of display mode changes",
			},
			[]string{"mode"},
		),

		// Bridge metrics
		BridgeRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "host_bridge_requests_total",
				Help: "Total number of guest bridge requests",
			},
			[]string{"method", "status"},
		),
		BridgeDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "host_bridge_request_duration_seconds",
				Help:    "Guest bridge request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method"},
		),

		// Agent backend metrics
		AgentCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "host_agent_calls_total",
				Help: "Total number of agent backend calls",
			},
			[]string{"method", "status"},
		),
		AgentDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "host_agent_call_duration_seconds",
				Help:    "Agent backend call duration in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method"},
		),

		// Sandbox proxy metrics
		ProxyRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "host_proxy_requests_total",
				Help: "Total number of sandbox proxy requests",
			},
			[]string{"route", "status"},
		),
		GuestsStaged: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "host_proxy_guests_staged_total",
				Help: "Total number of guest payloads staged",
			},
		),
		GuestsEvicted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "host_proxy_guests_evicted_total",
				Help: "Total number of guest payloads evicted before serving",
			},
		),

		// Session metrics
		SessionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "host_sessions_active",
				Help: "Number of active sessions",
			},
		),

		// Guest channel metrics
		ChannelConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "host_channel_connections",
				Help: "Number of active guest channel connections",
			},
		),
		ChannelFrames: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "host_channel_frames_total",
				Help: "Total number of guest channel frames",
			},
			[]string{"direction", "type"},
		),

		// System metrics
		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "host_uptime_seconds",
				Help: "Host uptime in seconds",
			},
		),
	}

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	// Update snapshot
	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordPhaseTransition records an app lifecycle phase transition
func (m *Metrics) RecordPhaseTransition(phase string) {
	m.PhaseTransitions.WithLabelValues(phase).Inc()
}

// RecordResourceFetch records a UI resource fetch attempt
func (m *Metrics) RecordResourceFetch(status string, duration time.Duration) {
	m.ResourceFetches.WithLabelValues(status).Inc()
	m.FetchDuration.Observe(duration.Seconds())
}

// RecordDisplayMode records a display mode change
func (m *Metrics) RecordDisplayMode(mode string) {
	m.DisplayModes.WithLabelValues(mode).Inc()
}

// RecordBridgeRequest records a guest bridge request
func (m *Metrics) RecordBridgeRequest(method, status string, duration time.Duration) {
	m.BridgeRequests.WithLabelValues(method, status).Inc()
	m.BridgeDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordAgentCall records an agent backend call
func (m *Metrics) RecordAgentCall(method, status string, duration time.Duration) {
	m.AgentCalls.WithLabelValues(method, status).Inc()
	m.AgentDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordProxyRequest records a sandbox proxy request
func (m *Metrics) RecordProxyRequest(route, status string) {
	m.ProxyRequests.WithLabelValues(route, status).Inc()
}

// RecordChannelFrame records a guest channel frame
func (m *Metrics) RecordChannelFrame(direction, frameType string) {
	m.ChannelFrames.WithLabelValues(direction, frameType).Inc()
}

// SetInstancesActive sets the number of active app instances
func (m *Metrics) SetInstancesActive(count int) {
	m.InstancesActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveInstances = int64(count)
	m.mu.Unlock()
}

// IncInstancesTotal increments the total app instances counter
func (m *Metrics) IncInstancesTotal() {
	m.InstancesTotal.Inc()
}

// IncGuestsStaged increments the staged guest payload counter
func (m *Metrics) IncGuestsStaged() {
	m.GuestsStaged.Inc()
}

// IncGuestsEvicted increments the evicted guest payload counter
func (m *Metrics) IncGuestsEvicted() {
	m.GuestsEvicted.Inc()
}

// SetSessionsActive sets the number of active sessions
func (m *Metrics) SetSessionsActive(count int) {
	m.SessionsActive.Set(float64(count))
}

// IncChannelConnections increments guest channel connections
func (m *Metrics) IncChannelConnections() {
	m.ChannelConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveChannels++
	m.mu.Unlock()
}

// DecChannelConnections decrements guest channel connections
func (m *Metrics) DecChannelConnections() {
	m.ChannelConnections.Dec()
	m.mu.Lock()
	if m.snapshot.ActiveChannels > 0 {
		m.snapshot.ActiveChannels--
	}
	m.mu.Unlock()
}
