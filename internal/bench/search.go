package bench

import (
	"context"
	"log/slog"
	"math"

	"github.com/dantte-lp/gop4tg/internal/tgen"
)

const (
	// maxSearchIterations bounds both search phases.
	maxSearchIterations = 10

	// maxLineRateGbps is the rate ceiling of the exponential expansion.
	maxLineRateGbps = 100.0

	// convergenceEpsilon terminates the binary refinement once the
	// bracket is narrower than one milli-Gbit.
	convergenceEpsilon = 0.001
)

// exponentialSearch expands the offered rate in powers of two from the
// initial rate until loss appears or the line-rate ceiling is reached,
// returning the bracket for the binary refinement.
//
// Each step subscribes a fresh abort receiver so the step belongs to the
// current benchmark generation. A failed statistics fetch skips the step
// without moving the bracket; the attempt counter still advances, so
// persistent statistics failures cannot spin the loop.
func (m *Manager) exponentialSearch(ctx context.Context, payload *tgen.TrafficGenData, initialRate float64) (float64, float64, error) {
	k := 0
	currentRate := initialRate

	for attempt := 0; attempt < maxSearchIterations; attempt++ {
		testRate := initialRate * math.Pow(2, float64(k))

		if testRate > maxLineRateGbps {
			m.logger.Info("test rate exceeds line rate, stopping expansion",
				slog.Float64("rate", testRate),
			)
			break
		}

		m.logger.Info("exponential search step",
			slog.Int("k", k),
			slog.Float64("rate", testRate),
		)

		payload.Streams[0].TrafficRate = testRate

		if err := m.runOnce(ctx, payload, 0, m.timing.SearchRun, m.newAbortReceiver()); err != nil {
			return 0, 0, err
		}

		pct, err := m.lossPercent(ctx)
		if err != nil {
			m.logger.Error("statistics fetch failed, skipping search step",
				slog.Float64("rate", testRate),
				slog.String("error", err.Error()),
			)
			continue
		}

		if pct == 0 {
			currentRate = testRate
			k++
			continue
		}

		lowerBound := 0.0
		if k > 0 {
			lowerBound = initialRate * math.Pow(2, float64(k-1))
		}

		m.logger.Info("loss detected, bracket found",
			slog.Float64("loss_pct", pct),
			slog.Float64("lower", lowerBound),
			slog.Float64("upper", testRate),
		)

		return lowerBound, testRate, nil
	}

	return currentRate / 2, currentRate, nil
}

// binarySearch refines the bracket down to milli-Gbit resolution and returns
// the greatest rate that was empirically verified lossless. The returned
// value is always a measured rate, never an unverified midpoint; if no
// midpoint ever ran lossless, it is zero.
func (m *Manager) binarySearch(ctx context.Context, payload *tgen.TrafficGenData, lowerBound, upperBound float64) (float64, error) {
	abort := m.newAbortReceiver()
	maxSuccessfulRate := 0.0

	for i := 0; i < maxSearchIterations; i++ {
		currentRate := (lowerBound + upperBound) / 2

		m.logger.Info("binary search step",
			slog.Float64("rate", currentRate),
			slog.Float64("lower", lowerBound),
			slog.Float64("upper", upperBound),
		)

		payload.Streams[0].TrafficRate = currentRate

		if err := m.runOnce(ctx, payload, 0, m.timing.SearchRun, abort); err != nil {
			return 0, err
		}

		pct, err := m.lossPercent(ctx)
		switch {
		case err != nil:
			// Skipped step: the bracket stays where it was.
			m.logger.Error("statistics fetch failed, skipping search step",
				slog.Float64("rate", currentRate),
				slog.String("error", err.Error()),
			)
		case pct == 0:
			lowerBound = currentRate
			maxSuccessfulRate = currentRate
		default:
			upperBound = currentRate
		}

		if math.Abs(upperBound-lowerBound) < convergenceEpsilon {
			m.logger.Info("binary search converged",
				slog.Float64("max_successful_rate", maxSuccessfulRate),
			)
			break
		}
	}

	return maxSuccessfulRate, nil
}
