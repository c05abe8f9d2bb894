package bench

import (
	"context"
	"log/slog"
	"time"
)

// monitorPacketLoss samples the aggregate loss counter every interval while a
// long constant-rate run is in flight and detects a loss spike followed by
// recovery.
//
// The onset offset marks the first interval whose loss delta exceeded the
// threshold (the inferred device reset); the recovery offset marks the first
// subsequent interval back at or below the threshold. Either may be nil: the
// deadline can expire before onset, or before recovery.
//
// An abort returns (nil, nil) with no error. A failed statistics fetch is
// logged and the interval is skipped. The delta is floored at zero to absorb
// a loss counter that was externally zeroed mid-experiment.
func (m *Manager) monitorPacketLoss(
	ctx context.Context,
	threshold uint64,
	duration time.Duration,
	interval time.Duration,
	abort <-chan struct{},
) (onset, recovery *time.Duration, err error) {
	start := time.Now()

	var prevTotal uint64

	for time.Since(start) < duration {
		timer := time.NewTimer(interval)
		select {
		case <-timer.C:
		case <-abort:
			timer.Stop()
			m.logger.Info("abort signal received, stopping packet loss monitoring")
			return nil, nil, nil
		case <-ctx.Done():
			timer.Stop()
			return nil, nil, ctx.Err()
		}

		stats, statsErr := m.stats.Statistics(ctx)
		if statsErr != nil {
			m.logger.Error("statistics fetch failed during reset monitoring",
				slog.String("error", statsErr.Error()),
			)
			continue
		}

		total := stats.TotalPacketLoss()

		var delta uint64
		if total >= prevTotal {
			delta = total - prevTotal
		}
		prevTotal = total

		m.logger.Debug("interval packet loss",
			slog.Uint64("delta", delta),
			slog.Duration("elapsed", time.Since(start)),
		)

		if delta > threshold && onset == nil {
			d := time.Since(start)
			onset = &d
			m.logger.Info("loss spike detected, reset inferred",
				slog.Duration("onset", d),
			)
		}

		if delta <= threshold && onset != nil {
			d := time.Since(start)
			m.logger.Info("loss back below threshold, service restored",
				slog.Duration("recovery", d),
			)
			return onset, &d, nil
		}
	}

	return onset, nil, nil
}
