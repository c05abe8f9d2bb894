package benchmetrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/dantte-lp/gop4tg/internal/benchmetrics"
)

func newTestCollector(t *testing.T) *benchmetrics.Collector {
	t.Helper()
	return benchmetrics.NewCollector(prometheus.NewRegistry())
}

// gaugeValue extracts the current value of a plain gauge.
func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetGauge().GetValue()
}

// counterValue extracts the current value of a plain counter.
func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestRunningGaugeFollowsBenchmarkLifecycle(t *testing.T) {
	t.Parallel()

	c := newTestCollector(t)

	c.BenchmarkStarted("throughput")
	if got := gaugeValue(t, c.Running); got != 1 {
		t.Errorf("running = %v after start, want 1", got)
	}

	c.BenchmarkFinished("throughput", false)
	if got := gaugeValue(t, c.Running); got != 0 {
		t.Errorf("running = %v after finish, want 0", got)
	}
}

func TestBenchmarkOutcomeCounter(t *testing.T) {
	t.Parallel()

	c := newTestCollector(t)

	c.BenchmarkFinished("throughput", false)
	c.BenchmarkFinished("throughput", true)
	c.BenchmarkFinished("throughput", true)

	ok, err := c.Benchmarks.GetMetricWithLabelValues("throughput", "ok")
	if err != nil {
		t.Fatalf("get ok counter: %v", err)
	}
	failed, err := c.Benchmarks.GetMetricWithLabelValues("throughput", "failed")
	if err != nil {
		t.Fatalf("get failed counter: %v", err)
	}

	if got := counterValue(t, ok); got != 1 {
		t.Errorf("ok count = %v, want 1", got)
	}
	if got := counterValue(t, failed); got != 2 {
		t.Errorf("failed count = %v, want 2", got)
	}
}

func TestRunCounters(t *testing.T) {
	t.Parallel()

	c := newTestCollector(t)

	c.RunCompleted(false)
	c.RunCompleted(false)
	c.RunCompleted(true)

	if got := counterValue(t, c.Runs); got != 3 {
		t.Errorf("runs = %v, want 3", got)
	}
	if got := counterValue(t, c.RunFailures); got != 1 {
		t.Errorf("run failures = %v, want 1", got)
	}
}

func TestResultGauges(t *testing.T) {
	t.Parallel()

	c := newTestCollector(t)

	c.ObserveLoss(12.5)
	c.ObserveThroughput(64, 30.5)
	c.ObserveLatency(1518, 11.2)
	c.ObserveReset(8.0)

	if got := gaugeValue(t, c.LossPercent); got != 12.5 {
		t.Errorf("loss percent = %v, want 12.5", got)
	}

	tp, err := c.ThroughputGbps.GetMetricWithLabelValues("64")
	if err != nil {
		t.Fatalf("get throughput gauge: %v", err)
	}
	if got := gaugeValue(t, tp); got != 30.5 {
		t.Errorf("throughput{64} = %v, want 30.5", got)
	}

	lat, err := c.LatencyMicros.GetMetricWithLabelValues("1518")
	if err != nil {
		t.Fatalf("get latency gauge: %v", err)
	}
	if got := gaugeValue(t, lat); got != 11.2 {
		t.Errorf("latency{1518} = %v, want 11.2", got)
	}

	if got := gaugeValue(t, c.ResetSeconds); got != 8.0 {
		t.Errorf("reset seconds = %v, want 8.0", got)
	}
}

func TestAbortCounter(t *testing.T) {
	t.Parallel()

	c := newTestCollector(t)

	c.AbortIssued()
	c.AbortIssued()

	if got := counterValue(t, c.Aborts); got != 2 {
		t.Errorf("aborts = %v, want 2", got)
	}
}
