package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/gray-logic-climate/internal/buffer"
	"github.com/nerrad567/gray-logic-climate/internal/device"
)

const namespace = "climate"

// Collector holds the daemon's Prometheus collectors.
type Collector struct {
	registry *prometheus.Registry

	polls        *prometheus.CounterVec
	pollDuration *prometheus.HistogramVec
	health       *prometheus.GaugeVec
	cycle        *prometheus.HistogramVec
	flushes      *prometheus.CounterVec
	flushLatency *prometheus.HistogramVec
	queue        *prometheus.GaugeVec
	stalled      *prometheus.GaugeVec
}

// New creates a Collector with its own registry. Go runtime and process
// collectors are included.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Device polls by class, room and result.",
		}, []string{"class", "room", "result"}),
		pollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Time spent in a single device poll.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"class"}),
		health: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "room_health",
			Help:      "Current health score of each sensor room (0-100).",
		}, []string{"room"}),
		cycle: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Time to poll every device of a class once, retries included.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"class"}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushes_total",
			Help:      "Buffer flush attempts by table and outcome.",
		}, []string{"table", "outcome"}),
		flushLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flush_duration_seconds",
			Help:      "Time spent flushing one table, retries included.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"table"}),
		queue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_rows",
			Help:      "Rows waiting in the write buffer per table.",
		}, []string{"table"}),
		stalled: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stalled_reports",
			Help:      "Consecutive report ticks that left rows unflushed.",
		}, []string{"class"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.polls, c.pollDuration, c.health, c.cycle,
		c.flushes, c.flushLatency, c.queue, c.stalled,
	)
	return c
}

// Registry returns the registry the collectors are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObservePoll records the result and duration of one device poll.
func (c *Collector) ObservePoll(class device.Class, roomID string, ok bool, took time.Duration) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	c.polls.WithLabelValues(string(class), roomID, result).Inc()
	c.pollDuration.WithLabelValues(string(class)).Observe(took.Seconds())
}

// ObserveHealth records the current score of a room.
func (c *Collector) ObserveHealth(roomID string, score int) {
	c.health.WithLabelValues(roomID).Set(float64(score))
}

// ObserveCycle records the duration of one sampling pass.
func (c *Collector) ObserveCycle(class device.Class, took time.Duration) {
	c.cycle.WithLabelValues(string(class)).Observe(took.Seconds())
}

// ObserveFlush records one table flush.
func (c *Collector) ObserveFlush(table string, outcome buffer.Outcome, took time.Duration) {
	c.flushes.WithLabelValues(table, outcome.String()).Inc()
	c.flushLatency.WithLabelValues(table).Observe(took.Seconds())
}

// ObserveQueue records the depth of a table queue.
func (c *Collector) ObserveQueue(table string, depth int) {
	c.queue.WithLabelValues(table).Set(float64(depth))
}

// ObserveStalled records the consecutive stalled report count for a class.
func (c *Collector) ObserveStalled(class device.Class, reports int) {
	c.stalled.WithLabelValues(string(class)).Set(float64(reports))
}
