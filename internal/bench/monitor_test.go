package bench

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"testing/synctest"
	"time"

	"github.com/dantte-lp/gop4tg/internal/tgen"
)

// seriesStats builds a StatsSource whose aggregate loss counter follows
// totalAt, evaluated at the elapsed whole second since start.
func seriesStats(start time.Time, totalAt func(second int) uint64) statisticsFunc {
	return func(context.Context) (*tgen.Statistics, error) {
		return &tgen.Statistics{
			PacketLoss: map[uint32]uint64{137: totalAt(int(time.Since(start) / time.Second))},
		}, nil
	}
}

func newMonitorManager(stats StatsSource) *Manager {
	return NewManager(Deps{Stats: stats}, NewStore(), slog.Default())
}

// TestMonitorSpikeAndRecovery verifies onset is placed at the first interval
// whose delta exceeds the threshold and recovery at the first interval back
// below it.
func TestMonitorSpikeAndRecovery(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		start := time.Now()
		m := newMonitorManager(seriesStats(start, func(second int) uint64 {
			switch {
			case second <= 9:
				return uint64(100 * second)
			case second <= 17:
				return 900 + uint64(20000*(second-9))
			default:
				return 900 + 160000
			}
		}))

		onset, recovery, err := m.monitorPacketLoss(context.Background(), 7000, 120*time.Second, time.Second, make(chan struct{}))
		if err != nil {
			t.Fatalf("monitorPacketLoss: %v", err)
		}

		if onset == nil || recovery == nil {
			t.Fatalf("onset = %v, recovery = %v, want both set", onset, recovery)
		}
		if *onset != 10*time.Second {
			t.Errorf("onset = %v, want 10s", *onset)
		}
		if *recovery != 18*time.Second {
			t.Errorf("recovery = %v, want 18s", *recovery)
		}
		if *recovery <= *onset {
			t.Errorf("recovery %v not after onset %v", *recovery, *onset)
		}
	})
}

// TestMonitorDeadlineWithoutSpike verifies a quiet counter yields (nil, nil)
// once the deadline expires.
func TestMonitorDeadlineWithoutSpike(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		start := time.Now()
		m := newMonitorManager(seriesStats(start, func(second int) uint64 {
			return uint64(10 * second)
		}))

		onset, recovery, err := m.monitorPacketLoss(context.Background(), 7000, 10*time.Second, time.Second, make(chan struct{}))
		if err != nil {
			t.Fatalf("monitorPacketLoss: %v", err)
		}

		if onset != nil || recovery != nil {
			t.Errorf("onset = %v, recovery = %v, want (nil, nil)", onset, recovery)
		}
	})
}

// TestMonitorSpikeWithoutRecovery verifies a spike that never subsides
// yields an onset but no recovery.
func TestMonitorSpikeWithoutRecovery(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		start := time.Now()
		m := newMonitorManager(seriesStats(start, func(second int) uint64 {
			if second < 3 {
				return 0
			}
			return uint64(20000 * second)
		}))

		onset, recovery, err := m.monitorPacketLoss(context.Background(), 7000, 10*time.Second, time.Second, make(chan struct{}))
		if err != nil {
			t.Fatalf("monitorPacketLoss: %v", err)
		}

		if onset == nil {
			t.Fatal("onset = nil, want set")
		}
		if recovery != nil {
			t.Errorf("recovery = %v, want nil", recovery)
		}
	})
}

// TestMonitorAbortReturnsNothing verifies an abort mid-monitoring returns
// (nil, nil) without error, even after onset was already seen.
func TestMonitorAbortReturnsNothing(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		start := time.Now()
		m := newMonitorManager(seriesStats(start, func(second int) uint64 {
			return uint64(50000 * second)
		}))

		abort := make(chan struct{})
		go func() {
			time.Sleep(4500 * time.Millisecond)
			close(abort)
		}()

		onset, recovery, err := m.monitorPacketLoss(context.Background(), 7000, 120*time.Second, time.Second, abort)
		if err != nil {
			t.Fatalf("monitorPacketLoss: %v", err)
		}

		if onset != nil || recovery != nil {
			t.Errorf("onset = %v, recovery = %v, want (nil, nil) on abort", onset, recovery)
		}
	})
}

// TestMonitorZeroThreshold verifies any positive delta counts as onset with
// threshold zero.
func TestMonitorZeroThreshold(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		start := time.Now()
		m := newMonitorManager(seriesStats(start, func(second int) uint64 {
			if second == 2 {
				return 1
			}
			if second > 2 {
				return 1
			}
			return 0
		}))

		onset, recovery, err := m.monitorPacketLoss(context.Background(), 0, 10*time.Second, time.Second, make(chan struct{}))
		if err != nil {
			t.Fatalf("monitorPacketLoss: %v", err)
		}

		if onset == nil || *onset != 2*time.Second {
			t.Errorf("onset = %v, want 2s", onset)
		}
		if recovery == nil || *recovery != 3*time.Second {
			t.Errorf("recovery = %v, want 3s", recovery)
		}
	})
}

// TestMonitorCounterZeroedExternally verifies a counter that goes backwards
// mid-experiment is absorbed as a zero delta instead of underflowing.
func TestMonitorCounterZeroedExternally(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		start := time.Now()
		m := newMonitorManager(seriesStats(start, func(second int) uint64 {
			if second < 3 {
				return uint64(100000 * second)
			}
			return 0 // counter zeroed at second 3
		}))

		onset, recovery, err := m.monitorPacketLoss(context.Background(), 7000, 6*time.Second, time.Second, make(chan struct{}))
		if err != nil {
			t.Fatalf("monitorPacketLoss: %v", err)
		}

		// Deltas are 100000 at seconds 1 and 2; the zeroed counter yields
		// a floored delta of 0 at second 3, which reads as recovery.
		if onset == nil || *onset != time.Second {
			t.Errorf("onset = %v, want 1s", onset)
		}
		if recovery == nil || *recovery != 3*time.Second {
			t.Errorf("recovery = %v, want 3s", recovery)
		}
	})
}

// TestMonitorStatsFailureSkipsInterval verifies fetch failures skip the
// interval and monitoring continues.
func TestMonitorStatsFailureSkipsInterval(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		start := time.Now()
		var calls int
		stats := statisticsFunc(func(context.Context) (*tgen.Statistics, error) {
			calls++
			if calls <= 2 {
				return nil, errors.New("digest queue overflow")
			}
			second := int(time.Since(start) / time.Second)
			if second < 5 {
				return &tgen.Statistics{PacketLoss: map[uint32]uint64{137: uint64(30000 * second)}}, nil
			}
			return &tgen.Statistics{PacketLoss: map[uint32]uint64{137: 30000 * 5}}, nil
		})
		m := newMonitorManager(stats)

		onset, recovery, err := m.monitorPacketLoss(context.Background(), 7000, 10*time.Second, time.Second, make(chan struct{}))
		if err != nil {
			t.Fatalf("monitorPacketLoss: %v", err)
		}

		if onset == nil || recovery == nil {
			t.Fatalf("onset = %v, recovery = %v, want both set despite early fetch failures", onset, recovery)
		}
	})
}
