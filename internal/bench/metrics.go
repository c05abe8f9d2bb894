package bench

// MetricsReporter receives benchmark telemetry for export. The Manager calls
// into it from the orchestration loop; implementations must be cheap and
// non-blocking.
type MetricsReporter interface {
	// BenchmarkStarted marks a benchmark entry point as active.
	BenchmarkStarted(test string)

	// BenchmarkFinished marks the benchmark's terminating return.
	BenchmarkFinished(test string, failed bool)

	// RunCompleted counts one timed traffic run.
	RunCompleted(failed bool)

	// ObserveLoss records the loss percentage of the latest run.
	ObserveLoss(pct float64)

	// ObserveThroughput records a converged zero-loss rate.
	ObserveThroughput(frameSize uint32, gbps float64)

	// ObserveLatency records a mean one-way latency.
	ObserveLatency(frameSize uint32, micros float64)

	// ObserveReset records a reset recovery time.
	ObserveReset(seconds float64)

	// AbortIssued counts one published abort.
	AbortIssued()
}

// noopMetrics is the default MetricsReporter when none is configured.
type noopMetrics struct{}

func (noopMetrics) BenchmarkStarted(string)           {}
func (noopMetrics) BenchmarkFinished(string, bool)    {}
func (noopMetrics) RunCompleted(bool)                 {}
func (noopMetrics) ObserveLoss(float64)               {}
func (noopMetrics) ObserveThroughput(uint32, float64) {}
func (noopMetrics) ObserveLatency(uint32, float64)    {}
func (noopMetrics) ObserveReset(float64)              {}
func (noopMetrics) AbortIssued()                      {}

// compile-time check that the no-op reporter satisfies the interface.
var _ MetricsReporter = noopMetrics{}
