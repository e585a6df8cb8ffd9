// Package metrics exposes the gateway's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gateway"

// Collector groups every gateway metric. A nil *Collector is valid and
// records nothing.
type Collector struct {
	authAttempts    *prometheus.CounterVec
	relayRequests   *prometheus.CounterVec
	streamEvents    *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	insecureSecret  prometheus.Gauge
	wsConnections   prometheus.Gauge
}

// NewCollector creates the collectors and registers them with registry.
func NewCollector(registry prometheus.Registerer) *Collector {
	c := &Collector{
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Authentication attempts by resolved mode and outcome.",
		}, []string{"mode", "outcome"}),
		relayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_requests_total",
			Help:      "Relayed chat requests by kind (complete, stream) and outcome.",
		}, []string{"kind", "outcome"}),
		streamEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_events_total",
			Help:      "Events emitted on relayed streams by type.",
		}, []string{"type"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_latency_seconds",
			Help:      "Time spent on upstream completions, by kind and whether the caller overrode the default model.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"kind", "model_source"}),
		insecureSecret: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "insecure_signing_secret",
			Help:      "1 when tokens are signed with the built-in placeholder secret.",
		}),
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Live WebSocket chat connections.",
		}),
	}

	registry.MustRegister(
		c.authAttempts,
		c.relayRequests,
		c.streamEvents,
		c.upstreamLatency,
		c.insecureSecret,
		c.wsConnections,
	)
	return c
}

// RecordAuth counts one authentication attempt.
func (c *Collector) RecordAuth(mode, outcome string) {
	if c == nil {
		return
	}
	c.authAttempts.WithLabelValues(mode, outcome).Inc()
}

// Model sources for RecordRelay. Caller-chosen model names are never
// used as label values.
const (
	ModelDefault  = "default"
	ModelOverride = "override"
)

// RecordRelay counts one finished relay call and its upstream latency.
// modelSource is ModelDefault or ModelOverride.
func (c *Collector) RecordRelay(kind, modelSource, outcome string, latency time.Duration) {
	if c == nil {
		return
	}
	if modelSource != ModelOverride {
		modelSource = ModelDefault
	}
	c.relayRequests.WithLabelValues(kind, outcome).Inc()
	c.upstreamLatency.WithLabelValues(kind, modelSource).Observe(latency.Seconds())
}

// RecordStreamEvent counts one emitted stream event.
func (c *Collector) RecordStreamEvent(eventType string) {
	if c == nil {
		return
	}
	c.streamEvents.WithLabelValues(eventType).Inc()
}

// SetInsecureSecret flags use of the placeholder signing secret.
func (c *Collector) SetInsecureSecret(insecure bool) {
	if c == nil {
		return
	}
	if insecure {
		c.insecureSecret.Set(1)
		return
	}
	c.insecureSecret.Set(0)
}

// SetWebSocketConnections reports the number of live WebSocket connections.
func (c *Collector) SetWebSocketConnections(n int) {
	if c == nil {
		return
	}
	c.wsConnections.Set(float64(n))
}
