package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/dantte-lp/gop4tg/internal/tgen"
)

// Sentinel errors for benchmark execution.
var (
	// ErrAborted indicates a traffic run was cancelled through the abort channel.
	ErrAborted = errors.New("traffic generation aborted")

	// ErrNoStreams indicates the payload carries no stream to drive.
	ErrNoStreams = errors.New("payload must contain at least one stream")
)

// Generator drives the dataplane traffic-generation primitive: it starts the
// configured stream set, holds it for the given duration, and stops it.
// Implementations honor the abort receiver and the context.
type Generator interface {
	Start(ctx context.Context, payload *tgen.TrafficGenData, iteration int, duration time.Duration, abort <-chan struct{}) error
}

// StatsSource reads a point-in-time snapshot of the ASIC counters.
type StatsSource interface {
	Statistics(ctx context.Context) (*tgen.Statistics, error)
}

// PortSource reports the configured front-panel ports.
type PortSource interface {
	Ports(ctx context.Context) ([]tgen.Port, error)
}

// StatsSink persists the statistics collected during a sub-test.
// The testID tags the test type (2 throughput/latency, 3 frame loss, 5 reset).
type StatsSink interface {
	SaveStatistics(ctx context.Context, testID int) error
}

// -------------------------------------------------------------------------
// Run Harness
// -------------------------------------------------------------------------

// runOnce performs one timed traffic-generation invocation.
func (m *Manager) runOnce(ctx context.Context, payload *tgen.TrafficGenData, iteration int, duration time.Duration, abort <-chan struct{}) error {
	err := m.generator.Start(ctx, payload, iteration, duration, abort)
	m.metrics.RunCompleted(err != nil)
	if err != nil {
		return fmt.Errorf("traffic generation at %.3f Gbit/s: %w", payload.Streams[0].TrafficRate, err)
	}
	return nil
}

// lossPercent fetches a statistics snapshot and computes the loss percentage
// of the preceding run.
func (m *Manager) lossPercent(ctx context.Context) (float64, error) {
	stats, err := m.stats.Statistics(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch statistics: %w", err)
	}

	totalTx := stats.TotalTxPackets()
	loss := stats.TotalPacketLoss()
	pct := LossPercent(totalTx, loss)
	m.metrics.ObserveLoss(pct)

	m.logger.Debug("run statistics",
		slog.Uint64("total_tx", totalTx),
		slog.Uint64("packet_loss", loss),
		slog.Float64("loss_pct", pct),
	)

	return pct, nil
}

// LossPercent computes the loss percentage from the TX and loss counters,
// rounded to three decimal places. Zero TX yields zero loss.
func LossPercent(totalTx, loss uint64) float64 {
	if totalTx == 0 {
		return 0
	}
	return round3(float64(loss) / float64(totalTx) * 100)
}

// round3 rounds to three decimal places.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// settle sleeps briefly before the statistics sink is triggered, giving the
// monitors time to drain the final counters. Abort- and context-sensitive.
func (m *Manager) settle(ctx context.Context, abort <-chan struct{}) {
	timer := time.NewTimer(m.timing.Settle)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-abort:
	case <-ctx.Done():
	}
}
