package bench

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dantte-lp/gop4tg/internal/tgen"
)

// FrameSizes is the RFC 2544 frame-size list swept by the throughput,
// latency, and frame-loss tests.
var FrameSizes = []uint32{64, 128, 512, 1024, 1518}

// Benchmark labels used for logging and metrics.
const (
	testThroughput = "throughput"
	testLatency    = "latency"
	testFrameLoss  = "frame_loss_rate"
	testReset      = "reset"
)

// Statistics sink test-type tags.
const (
	sinkTagThroughputLatency = 2
	sinkTagFrameLoss         = 3
	sinkTagReset             = 5
)

const (
	// latencyRepetitions is the number of timed runs per frame size in the
	// latency test. RFC 2544 Section 25.2 recommends twenty; ten keeps a
	// full sweep under half an hour.
	latencyRepetitions = 10

	// frameLossSteps is the number of rate reductions per frame size in the
	// frame-loss test (100%, 90%, ... 10% of line rate).
	frameLossSteps = 10

	// resetFrameSize is the only frame size of the reset test
	// (RFC 2544 Section 25.6: minimum frame size).
	resetFrameSize = 64

	// resetLossThreshold is the per-interval packet loss above which a
	// device reset is inferred.
	resetLossThreshold = 7000
)

// Timing groups the run durations of the benchmark engine. The defaults are
// the production values; tests shrink them.
type Timing struct {
	// SearchRun is the duration of one search or frame-loss step.
	SearchRun time.Duration

	// LatencyRun is the duration of one latency repetition.
	LatencyRun time.Duration

	// ResetRun is the duration of the reset test's constant-rate run and
	// the deadline of its loss monitor.
	ResetRun time.Duration

	// MonitorInterval is the sampling interval of the reset loss monitor.
	MonitorInterval time.Duration

	// Settle is the pause before the statistics sink is triggered.
	Settle time.Duration
}

// DefaultTiming returns the production run durations.
func DefaultTiming() Timing {
	return Timing{
		SearchRun:       10 * time.Second,
		LatencyRun:      30 * time.Second,
		ResetRun:        120 * time.Second,
		MonitorInterval: time.Second,
		Settle:          time.Second,
	}
}

// Deps bundles the dataplane contracts the Manager drives.
type Deps struct {
	Generator Generator
	Stats     StatsSource
	Ports     PortSource
	Sink      StatsSink
}

// Manager orchestrates the four RFC 2544 benchmarks against the dataplane.
//
// At most one benchmark is live at a time: every entry point first publishes
// an abort on the shared channel, cancelling any in-flight run of a previous
// benchmark, and only then replaces the channel so its own runs cannot be
// stopped by the predecessor.
type Manager struct {
	generator Generator
	stats     StatsSource
	ports     PortSource
	sink      StatsSink

	store  *Store
	timing Timing

	// metrics is never nil -- noopMetrics when no collector is configured.
	metrics MetricsReporter

	abortMu sync.Mutex
	abort   *abortChannel

	logger *slog.Logger
}

// Option configures optional Manager parameters.
type Option func(*Manager)

// WithMetrics sets the MetricsReporter. If mr is nil, a no-op reporter is used.
func WithMetrics(mr MetricsReporter) Option {
	return func(m *Manager) {
		if mr != nil {
			m.metrics = mr
		}
	}
}

// WithTiming overrides the run durations.
func WithTiming(t Timing) Option {
	return func(m *Manager) {
		m.timing = t
	}
}

// NewManager creates a benchmark Manager publishing results into store.
func NewManager(deps Deps, store *Store, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		generator: deps.Generator,
		stats:     deps.Stats,
		ports:     deps.Ports,
		sink:      deps.Sink,
		store:     store,
		timing:    DefaultTiming(),
		metrics:   noopMetrics{},
		abort:     newAbortChannel(),
		logger:    logger.With(slog.String("component", "bench.manager")),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// -------------------------------------------------------------------------
// Abort Protocol
// -------------------------------------------------------------------------

// AbortCurrentTest publishes an abort on the current channel. Every receiver
// bound to it observes the signal and terminates promptly.
func (m *Manager) AbortCurrentTest() {
	m.abortMu.Lock()
	ch := m.abort
	m.abortMu.Unlock()

	ch.Signal()
	m.metrics.AbortIssued()
}

// newAbortReceiver replaces the shared abort channel with a fresh one and
// returns a receiver bound to it. Receivers bound to the superseded channel
// keep observing their own instance.
func (m *Manager) newAbortReceiver() <-chan struct{} {
	m.abortMu.Lock()
	defer m.abortMu.Unlock()

	m.abort = newAbortChannel()
	return m.abort.Done()
}

// -------------------------------------------------------------------------
// Result Access
// -------------------------------------------------------------------------

// Results returns a consistent snapshot of the result record.
func (m *Manager) Results() tgen.TestResult {
	return m.store.Snapshot()
}

// ResetResults clears the result record back to its post-startup state.
func (m *Manager) ResetResults() {
	m.store.Reset()
}

// ResetCollectedStatistics clears the collected statistics lists and the
// stored traffic-generator log.
func (m *Manager) ResetCollectedStatistics() {
	m.store.ResetCollected()
}

// -------------------------------------------------------------------------
// Benchmark Lifecycle
// -------------------------------------------------------------------------

// begin enforces the single-experiment regime (abort the predecessor before
// anything else) and flips the running flag.
func (m *Manager) begin(test string) {
	m.AbortCurrentTest()
	m.store.SetRunning(true)
	m.metrics.BenchmarkStarted(test)
}

// finish clears the sub-test label and running flag. The caller polling the
// store observes running=false together with the final outputs.
func (m *Manager) finish(test string, failed bool) {
	m.store.ClearCurrentTest()
	m.store.SetRunning(false)
	m.metrics.BenchmarkFinished(test, failed)
}

func validatePayload(payload *tgen.TrafficGenData) error {
	if payload == nil || len(payload.Streams) == 0 {
		return ErrNoStreams
	}
	return nil
}

// -------------------------------------------------------------------------
// Throughput Test — RFC 2544 Section 25.1
// -------------------------------------------------------------------------

// Throughput finds, per frame size, the maximum rate at which a timed run
// produces exactly zero loss, via exponential expansion and binary
// refinement. Results are persisted per frame size as they converge.
func (m *Manager) Throughput(ctx context.Context, payload *tgen.TrafficGenData) (results map[uint32]float64, err error) {
	if err = validatePayload(payload); err != nil {
		return nil, err
	}

	m.begin(testThroughput)
	defer func() { m.finish(testThroughput, err != nil) }()

	m.logger.Info("starting throughput test for all frame sizes")

	results = make(map[uint32]float64, len(FrameSizes))

	for _, frameSize := range FrameSizes {
		testPayload := payload.Clone()
		testPayload.Streams[0].FrameSize = frameSize

		label := fmt.Sprintf("Throughput - %d Bytes", frameSize)
		m.store.SetCurrentTest(label)
		m.store.AppendGenerator(testPayload, label)

		initialRate := testPayload.Streams[0].TrafficRate

		lowerBound, upperBound, searchErr := m.exponentialSearch(ctx, testPayload, initialRate)
		if searchErr != nil {
			err = searchErr
			return nil, err
		}

		m.logger.Warn("exponential search interval",
			slog.Uint64("frame_size", uint64(frameSize)),
			slog.Float64("lower", lowerBound),
			slog.Float64("upper", upperBound),
		)

		maxRate, searchErr := m.binarySearch(ctx, testPayload, lowerBound, upperBound)
		if searchErr != nil {
			err = searchErr
			return nil, err
		}

		results[frameSize] = maxRate
		m.store.SetThroughput(frameSize, maxRate)
		m.metrics.ObserveThroughput(frameSize, maxRate)

		m.logger.Info("throughput converged",
			slog.Uint64("frame_size", uint64(frameSize)),
			slog.Float64("rate", maxRate),
		)

		m.settle(ctx, nil)
		if sinkErr := m.sink.SaveStatistics(ctx, sinkTagThroughputLatency); sinkErr != nil {
			err = fmt.Errorf("save throughput statistics for %d bytes: %w", frameSize, sinkErr)
			return nil, err
		}
	}

	return results, nil
}

// -------------------------------------------------------------------------
// Latency Test — RFC 2544 Section 25.2
// -------------------------------------------------------------------------

// Latency measures, per frame size, the mean one-way latency over repeated
// timed runs at the stored throughput rate (falling back to the payload rate
// when no throughput result exists). The 95% confidence interval of the mean
// is computed and logged alongside.
func (m *Manager) Latency(ctx context.Context, payload *tgen.TrafficGenData) (results map[uint32]float64, err error) {
	if err = validatePayload(payload); err != nil {
		return nil, err
	}

	m.begin(testLatency)
	defer func() { m.finish(testLatency, err != nil) }()

	m.logger.Info("starting latency test for all frame sizes")

	results = make(map[uint32]float64, len(FrameSizes))

	for _, frameSize := range FrameSizes {
		rate, ok := m.store.ThroughputRate(frameSize)
		if !ok {
			rate = payload.Streams[0].TrafficRate
		}

		adjusted := payload.Clone()
		adjusted.Streams[0].TrafficRate = rate
		adjusted.Streams[0].FrameSize = frameSize

		label := fmt.Sprintf("Latency - %d Bytes", frameSize)
		m.store.SetCurrentTest(label)
		m.store.AppendGenerator(adjusted, label)

		abort := m.newAbortReceiver()
		latencies := make([]float64, 0, latencyRepetitions)

		for i := 0; i < latencyRepetitions; i++ {
			if runErr := m.runOnce(ctx, adjusted, i, m.timing.LatencyRun, abort); runErr != nil {
				err = runErr
				return nil, err
			}

			stats, statsErr := m.stats.Statistics(ctx)
			if statsErr != nil {
				m.logger.Error("statistics fetch failed, skipping repetition",
					slog.Int("repetition", i+1),
					slog.String("error", statsErr.Error()),
				)
				continue
			}

			rtt, found := firstRTT(stats)
			if !found {
				m.logger.Error("no RTT values in statistics, skipping repetition",
					slog.Int("repetition", i+1),
				)
				continue
			}

			// Half of RTT, converted from nanoseconds to microseconds.
			latencyMicros := (rtt.Mean / 2) / 1000
			latencies = append(latencies, latencyMicros)

			m.logger.Info("repetition complete",
				slog.Int("repetition", i+1),
				slog.Float64("latency_us", latencyMicros),
			)
		}

		m.settle(ctx, abort)
		if sinkErr := m.sink.SaveStatistics(ctx, sinkTagThroughputLatency); sinkErr != nil {
			err = fmt.Errorf("save latency statistics for %d bytes: %w", frameSize, sinkErr)
			return nil, err
		}

		if len(latencies) == 0 {
			m.logger.Warn("no latency samples collected, skipping frame size",
				slog.Uint64("frame_size", uint64(frameSize)),
			)
			continue
		}

		mean := sampleMean(latencies)

		if len(latencies) >= 2 {
			stdDev := sampleStdDev(latencies, mean)
			margin := confidenceMargin(stdDev, len(latencies))
			m.logger.Info("latency confidence interval",
				slog.Uint64("frame_size", uint64(frameSize)),
				slog.Float64("mean_us", mean),
				slog.Float64("ci_lower_us", mean-margin),
				slog.Float64("ci_upper_us", mean+margin),
			)
		}

		results[frameSize] = mean
		m.store.SetLatency(frameSize, mean)
		m.metrics.ObserveLatency(frameSize, mean)
	}

	return results, nil
}

// firstRTT returns the RTT summary of the lowest flow identifier, giving a
// deterministic pick when multiple flows report.
func firstRTT(stats *tgen.Statistics) (tgen.RTTStats, bool) {
	var (
		found  bool
		bestID uint32
		best   tgen.RTTStats
	)
	for id, rtt := range stats.RTTs {
		if !found || id < bestID {
			found = true
			bestID = id
			best = rtt
		}
	}
	return best, found
}

// -------------------------------------------------------------------------
// Frame Loss Rate Test — RFC 2544 Section 25.3
// -------------------------------------------------------------------------

// FrameLossRate sweeps, per frame size, the offered rate from line rate down
// in 10% steps and records the loss percentage of each step. A frame size is
// finished early after two consecutive zero-loss steps.
func (m *Manager) FrameLossRate(ctx context.Context, payload *tgen.TrafficGenData) (results map[uint32]map[uint32]float64, err error) {
	if err = validatePayload(payload); err != nil {
		return nil, err
	}

	m.begin(testFrameLoss)
	defer func() { m.finish(testFrameLoss, err != nil) }()

	m.logger.Info("starting frame loss rate test with multiple frame sizes and rates")

	ports, portsErr := m.ports.Ports(ctx)
	if portsErr != nil {
		err = fmt.Errorf("get ports: %w", portsErr)
		return nil, err
	}

	maxSpeed := tgen.MaxLineRate(ports)
	m.logger.Info("line rate determined",
		slog.Float64("gbps", maxSpeed),
	)

	abort := m.newAbortReceiver()
	results = make(map[uint32]map[uint32]float64, len(FrameSizes))

	for _, frameSize := range FrameSizes {
		testPayload := payload.Clone()
		testPayload.Streams[0].TrafficRate = maxSpeed
		testPayload.Streams[0].FrameSize = frameSize

		label := fmt.Sprintf("Frame Loss Rate - %d Bytes", frameSize)
		m.store.SetCurrentTest(label)
		m.store.AppendGenerator(testPayload, label)

		frameResults := make(map[uint32]float64, frameLossSteps)
		consecutiveZero := 0

		for i := 0; i < frameLossSteps; i++ {
			reduction := uint32(100 - 10*i)
			testPayload.Streams[0].TrafficRate = maxSpeed * float64(reduction) / 100

			if runErr := m.runOnce(ctx, testPayload, i, m.timing.SearchRun, abort); runErr != nil {
				err = runErr
				return nil, err
			}

			pct, statsErr := m.lossPercent(ctx)
			if statsErr != nil {
				m.logger.Error("statistics fetch failed, skipping step",
					slog.Uint64("reduction", uint64(reduction)),
					slog.String("error", statsErr.Error()),
				)
				continue
			}

			if pct > 100 {
				pct = 100
			}
			frameResults[reduction] = pct

			if pct == 0 {
				consecutiveZero++
				if consecutiveZero == 2 {
					m.logger.Info("two consecutive zero-loss steps, finishing frame size early",
						slog.Uint64("frame_size", uint64(frameSize)),
					)
					break
				}
			} else {
				consecutiveZero = 0
			}
		}

		results[frameSize] = frameResults
		m.store.SetFrameLossRate(frameSize, frameResults)

		if sinkErr := m.sink.SaveStatistics(ctx, sinkTagFrameLoss); sinkErr != nil {
			err = fmt.Errorf("save frame loss statistics for %d bytes: %w", frameSize, sinkErr)
			return nil, err
		}
	}

	return results, nil
}

// -------------------------------------------------------------------------
// Reset Test — RFC 2544 Section 25.6
// -------------------------------------------------------------------------

// Reset runs a long constant-rate stream at the minimum frame size while a
// concurrent monitor samples the loss counter for a spike-and-recovery
// pattern. The recovery time (recovery offset minus onset offset) is
// recorded; zero means no reset was observed.
func (m *Manager) Reset(ctx context.Context, payload *tgen.TrafficGenData) (recovery float64, err error) {
	if err = validatePayload(payload); err != nil {
		return 0, err
	}

	m.begin(testReset)
	defer func() { m.finish(testReset, err != nil) }()

	const frameSize = resetFrameSize
	label := fmt.Sprintf("Reset - %d Bytes", frameSize)

	m.logger.Info("starting reset test for the minimum frame size")
	m.store.SetCurrentTest(label)

	rate, ok := m.store.ThroughputRate(frameSize)
	if !ok {
		rate = payload.Streams[0].TrafficRate
	}

	adjusted := payload.Clone()
	adjusted.Streams[0].TrafficRate = rate
	adjusted.Streams[0].FrameSize = frameSize
	m.store.AppendGenerator(adjusted, label)

	// Both tasks share one abort channel: a close broadcasts to both.
	abort := m.newAbortReceiver()

	var onset, restored *time.Duration

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.runOnce(gctx, adjusted, 0, m.timing.ResetRun, abort)
	})
	g.Go(func() error {
		a, b, monErr := m.monitorPacketLoss(gctx, resetLossThreshold, m.timing.ResetRun, m.timing.MonitorInterval, abort)
		onset, restored = a, b
		return monErr
	})

	if waitErr := g.Wait(); waitErr != nil {
		err = waitErr
		return 0, err
	}

	switch {
	case onset == nil:
		m.logger.Info("no significant packet loss detected within the monitoring window")
	case restored == nil:
		m.logger.Info("no recovery detected after loss spike",
			slog.Duration("onset", *onset),
		)
	default:
		recovery = (*restored - *onset).Seconds()
		m.logger.Info("reset recovery measured",
			slog.Duration("onset", *onset),
			slog.Duration("restored", *restored),
			slog.Float64("recovery_s", recovery),
		)
	}

	m.store.SetReset(frameSize, recovery)
	m.metrics.ObserveReset(recovery)

	if sinkErr := m.sink.SaveStatistics(ctx, sinkTagReset); sinkErr != nil {
		err = fmt.Errorf("save reset statistics: %w", sinkErr)
		return 0, err
	}

	return recovery, nil
}
