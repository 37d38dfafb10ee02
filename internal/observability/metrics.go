package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkwell_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// CacheLookups counts cache-aside lookups by result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_cache_lookups_total",
		Help: "Total number of cache lookups by result",
	}, []string{"result"})

	// AuthEvents counts authentication outcomes by event and result.
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_auth_events_total",
		Help: "Total authentication events by type and result",
	}, []string{"event", "result"})

	// RelayConnections is the gauge of open relay connections.
	RelayConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inkwell_relay_connections",
		Help: "Number of open relay WebSocket connections",
	})

	// RelayRooms is the gauge of rooms with at least one member.
	RelayRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inkwell_relay_rooms",
		Help: "Number of active relay rooms",
	})

	// RelayEvents counts relay frames by event name.
	RelayEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_relay_events_total",
		Help: "Total relay events processed by type",
	}, []string{"event"})

	// RelayBackpressureDrops counts frames dropped because a connection's send buffer was full.
	RelayBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_relay_backpressure_drops_total",
		Help: "Total number of relay frames dropped due to backpressure",
	}, []string{"reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
