// Package benchmetrics exports Prometheus metrics for the RFC 2544
// benchmark engine.
package benchmetrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const (
	namespace = "gop4tg"
	subsystem = "rfc2544"
)

// Label names for benchmark metrics.
const (
	labelTest      = "test"
	labelFrameSize = "frame_size"
)

// -------------------------------------------------------------------------
// Collector — Prometheus Benchmark Metrics
// -------------------------------------------------------------------------

// Collector holds all benchmark Prometheus metrics. It implements
// bench.MetricsReporter.
//
// Designed for lab dashboards: the running gauge drives "experiment active"
// panels, the per-test counters catch failing campaigns, and the result
// gauges chart the latest converged values per frame size.
type Collector struct {
	// Running is 1 while a benchmark is active.
	Running prometheus.Gauge

	// Benchmarks counts benchmark invocations per test and outcome.
	Benchmarks *prometheus.CounterVec

	// Runs counts individual timed traffic runs.
	Runs prometheus.Counter

	// RunFailures counts timed traffic runs that returned an error.
	RunFailures prometheus.Counter

	// Aborts counts published abort signals.
	Aborts prometheus.Counter

	// LossPercent is the loss percentage of the most recent run.
	LossPercent prometheus.Gauge

	// ThroughputGbps is the latest converged zero-loss rate per frame size.
	ThroughputGbps *prometheus.GaugeVec

	// LatencyMicros is the latest mean one-way latency per frame size.
	LatencyMicros *prometheus.GaugeVec

	// ResetSeconds is the latest measured reset recovery time.
	ResetSeconds prometheus.Gauge
}

// outcome label values for the Benchmarks counter.
const (
	outcomeOK     = "ok"
	outcomeFailed = "failed"
)

// NewCollector creates a Collector with all benchmark metrics registered
// against the provided prometheus.Registerer. If reg is nil,
// prometheus.DefaultRegisterer is used.
//
// All metrics carry the "gop4tg_rfc2544_" prefix (namespace_subsystem).
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.Running,
		c.Benchmarks,
		c.Runs,
		c.RunFailures,
		c.Aborts,
		c.LossPercent,
		c.ThroughputGbps,
		c.LatencyMicros,
		c.ResetSeconds,
	)

	return c
}

// newMetrics creates all Prometheus metric vectors without registering them.
func newMetrics() *Collector {
	return &Collector{
		Running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "running",
			Help:      "1 while an RFC 2544 benchmark is active.",
		}),

		Benchmarks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "benchmarks_total",
			Help:      "Total benchmark invocations by test and outcome.",
		}, []string{labelTest, "outcome"}),

		Runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "runs_total",
			Help:      "Total timed traffic-generation runs.",
		}),

		RunFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "run_failures_total",
			Help:      "Total timed traffic-generation runs that failed.",
		}),

		Aborts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "aborts_total",
			Help:      "Total abort signals published to cancel in-flight runs.",
		}),

		LossPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "loss_percent",
			Help:      "Loss percentage observed by the most recent run.",
		}),

		ThroughputGbps: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "throughput_gbps",
			Help:      "Latest converged maximum zero-loss rate per frame size.",
		}, []string{labelFrameSize}),

		LatencyMicros: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "latency_microseconds",
			Help:      "Latest mean one-way latency per frame size.",
		}, []string{labelFrameSize}),

		ResetSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reset_recovery_seconds",
			Help:      "Latest measured reset recovery time.",
		}),
	}
}

// -------------------------------------------------------------------------
// bench.MetricsReporter implementation
// -------------------------------------------------------------------------

// BenchmarkStarted marks a benchmark entry point as active.
func (c *Collector) BenchmarkStarted(_ string) {
	c.Running.Set(1)
}

// BenchmarkFinished marks the benchmark's terminating return.
func (c *Collector) BenchmarkFinished(test string, failed bool) {
	c.Running.Set(0)

	outcome := outcomeOK
	if failed {
		outcome = outcomeFailed
	}
	c.Benchmarks.WithLabelValues(test, outcome).Inc()
}

// RunCompleted counts one timed traffic run.
func (c *Collector) RunCompleted(failed bool) {
	c.Runs.Inc()
	if failed {
		c.RunFailures.Inc()
	}
}

// ObserveLoss records the loss percentage of the latest run.
func (c *Collector) ObserveLoss(pct float64) {
	c.LossPercent.Set(pct)
}

// ObserveThroughput records a converged zero-loss rate.
func (c *Collector) ObserveThroughput(frameSize uint32, gbps float64) {
	c.ThroughputGbps.WithLabelValues(frameSizeLabel(frameSize)).Set(gbps)
}

// ObserveLatency records a mean one-way latency.
func (c *Collector) ObserveLatency(frameSize uint32, micros float64) {
	c.LatencyMicros.WithLabelValues(frameSizeLabel(frameSize)).Set(micros)
}

// ObserveReset records a reset recovery time.
func (c *Collector) ObserveReset(seconds float64) {
	c.ResetSeconds.Set(seconds)
}

// AbortIssued counts one published abort.
func (c *Collector) AbortIssued() {
	c.Aborts.Inc()
}

// frameSizeLabel renders a frame size as a metric label value.
func frameSizeLabel(frameSize uint32) string {
	return strconv.FormatUint(uint64(frameSize), 10)
}
