package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Scheduling decision outcomes.
const (
	OutcomeOK              = "ok"
	OutcomeConflict        = "conflict"
	OutcomePolicyViolation = "policy_violation"
	OutcomeInvalidInput    = "invalid_input"
)

type Collector struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	SchedulingDecisions *prometheus.CounterVec
	AppointmentsTotal   *prometheus.CounterVec
	SlotQueriesTotal    prometheus.Counter
	SlotsReturned       prometheus.Histogram
}

// NewCollector registers all metrics on a private registry, together with
// the Go runtime and process collectors.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		registry: reg,

		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "route", "status"}),

		InFlightGauge: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		SchedulingDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "decisions_total",
			Help:      "Conflict detector results by outcome.",
		}, []string{"outcome"}),

		AppointmentsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "appointments_total",
			Help:      "Appointments written, by resulting status.",
		}, []string{"status"}),

		SlotQueriesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "slot_queries_total",
			Help:      "Total available-slot lookups.",
		}),

		SlotsReturned: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "slots_returned",
			Help:      "Number of free slots returned per lookup.",
			Buckets:   prometheus.LinearBuckets(0, 4, 6),
		}),
	}
}

// SchedulingDecision counts one conflict detector result.
func (c *Collector) SchedulingDecision(outcome string) {
	c.SchedulingDecisions.WithLabelValues(outcome).Inc()
}

// AppointmentWritten counts an appointment persisted with the given status.
func (c *Collector) AppointmentWritten(status string) {
	c.AppointmentsTotal.WithLabelValues(status).Inc()
}

func (c *Collector) SlotQuery(free int) {
	c.SlotQueriesTotal.Inc()
	c.SlotsReturned.Observe(float64(free))
}

// RegisterDBPool exposes connection pool gauges read from stats at scrape time.
func (c *Collector) RegisterDBPool(namespace string, stats func() (acquired, idle, total int32)) {
	gauge := func(name, help string, pick func(a, i, t int32) int32) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      name,
			Help:      help,
		}, func() float64 {
			a, i, t := stats()
			return float64(pick(a, i, t))
		})
	}
	c.registry.MustRegister(
		gauge("acquired_connections", "Connections currently in use.", func(a, _, _ int32) int32 { return a }),
		gauge("idle_connections", "Idle connections in the pool.", func(_, i, _ int32) int32 { return i }),
		gauge("total_connections", "Total connections in the pool.", func(_, _, t int32) int32 { return t }),
	)
}

// Registry exposes the private registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
