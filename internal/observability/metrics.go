// Package observability holds the prometheus metrics exported by the dashboard.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultStale   = "stale"
)

// Metrics groups every collector exported by the service. All methods are
// safe to call on a nil *Metrics.
type Metrics struct {
	polls           *prometheus.CounterVec
	pollDuration    prometheus.Histogram
	nodes           prometheus.Gauge
	submissions     *prometheus.CounterVec
	liveClients     prometheus.Gauge
	alertsPublished *prometheus.CounterVec
}

// NewMetrics creates and registers the metrics on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		polls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sdrwatch_polls_total",
			Help: "Collector polls by result.",
		}, []string{"result"}),
		pollDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sdrwatch_poll_duration_seconds",
			Help:    "Time from issuing a poll to its response.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		nodes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sdrwatch_nodes",
			Help: "Nodes in the current snapshot.",
		}),
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sdrwatch_submissions_total",
			Help: "Dialog submissions sent to the collector by form and result.",
		}, []string{"form", "result"}),
		liveClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sdrwatch_live_clients",
			Help: "Connected live-feed websocket clients.",
		}),
		alertsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sdrwatch_alerts_published_total",
			Help: "High-noise alerts published over MQTT by result.",
		}, []string{"result"}),
	}
}

// ObservePoll records one completed poll
func (m *Metrics) ObservePoll(result string, took time.Duration) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(result).Inc()
	m.pollDuration.Observe(took.Seconds())
}

// SetNodes records the node count of the applied snapshot
func (m *Metrics) SetNodes(n int) {
	if m == nil {
		return
	}
	m.nodes.Set(float64(n))
}

// ObserveSubmission records one dialog submission
func (m *Metrics) ObserveSubmission(form, result string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(form, result).Inc()
}

// LiveClientConnected tracks a websocket client joining
func (m *Metrics) LiveClientConnected() {
	if m == nil {
		return
	}
	m.liveClients.Inc()
}

// LiveClientDisconnected tracks a websocket client leaving
func (m *Metrics) LiveClientDisconnected() {
	if m == nil {
		return
	}
	m.liveClients.Dec()
}

// ObserveAlert records one MQTT publish attempt
func (m *Metrics) ObserveAlert(result string) {
	if m == nil {
		return
	}
	m.alertsPublished.WithLabelValues(result).Inc()
}
