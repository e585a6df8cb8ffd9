package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorRecords(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector(registry)

	c.RecordAuth("development", "ok")
	c.RecordAuth("development", "ok")
	c.RecordAuth("", "missing")
	c.RecordRelay("stream", ModelDefault, "done", 200*time.Millisecond)
	c.RecordStreamEvent("data")
	c.RecordStreamEvent("data")
	c.RecordStreamEvent("done")
	c.SetInsecureSecret(true)
	c.SetWebSocketConnections(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.authAttempts.WithLabelValues("development", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.authAttempts.WithLabelValues("", "missing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.relayRequests.WithLabelValues("stream", "done")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.streamEvents.WithLabelValues("data")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.insecureSecret))
	assert.Equal(t, 1, testutil.CollectAndCount(c.upstreamLatency))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.wsConnections))

	c.SetInsecureSecret(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.insecureSecret))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordAuth("production", "ok")
		c.RecordRelay("complete", ModelOverride, "ok", time.Second)
		c.RecordStreamEvent("error")
		c.SetInsecureSecret(true)
		c.SetWebSocketConnections(1)
	})
}

func TestRecordRelayBoundsModelSource(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordRelay("complete", ModelOverride, "ok", time.Millisecond)
	c.RecordRelay("complete", "llama3:70b", "ok", time.Millisecond)
	c.RecordRelay("complete", ModelDefault, "ok", time.Millisecond)

	assert.Equal(t, 2, testutil.CollectAndCount(c.upstreamLatency))
}
