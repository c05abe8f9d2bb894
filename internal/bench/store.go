package bench

import (
	"maps"
	"sync"

	"github.com/dantte-lp/gop4tg/internal/tgen"
)

// Store is the process-wide record of benchmark outputs plus the two
// auxiliary logs: the labelled traffic-generator snapshots and the
// statistics collected by the interval monitors.
//
// All updates are serialized by a mutex with short critical sections (no I/O
// under lock). Readers always observe a consistent record; Snapshot returns
// deep copies so callers never hold references into mutable state.
//
// The Store does not enforce the one-benchmark-at-a-time regime itself; the
// Manager does, through the abort protocol.
type Store struct {
	mu sync.Mutex

	result tgen.TestResult

	// generators is the append-only log of traffic-generator snapshots,
	// each labelled with the sub-test that drove it.
	generators []tgen.TrafficGenData

	// collected and collectedTime hold the per-interval statistics appended
	// by the external monitors while an experiment runs.
	collected     []tgen.Statistics
	collectedTime []tgen.TimedStatistics
}

// NewStore returns an empty Store: all outputs absent, not running.
func NewStore() *Store {
	return &Store{}
}

// Snapshot returns a deep copy of the current result record.
func (s *Store) Snapshot() tgen.TestResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.result
	snap.Throughput = maps.Clone(s.result.Throughput)
	snap.Latency = maps.Clone(s.result.Latency)
	snap.Reset = maps.Clone(s.result.Reset)

	if s.result.FrameLossRate != nil {
		snap.FrameLossRate = make(map[uint32]map[uint32]float64, len(s.result.FrameLossRate))
		for size, rates := range s.result.FrameLossRate {
			snap.FrameLossRate[size] = maps.Clone(rates)
		}
	}

	return snap
}

// Reset clears the whole record: all outputs absent, not running, no
// current test. The post-reset record equals the post-startup record.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.result = tgen.TestResult{}
}

// SetRunning flips the running flag.
func (s *Store) SetRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.result.Running = running
}

// SetCurrentTest records the label of the active sub-test.
func (s *Store) SetCurrentTest(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.result.CurrentTest = name
}

// ClearCurrentTest removes the active sub-test label.
func (s *Store) ClearCurrentTest() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.result.CurrentTest = ""
}

// SetThroughput records the maximum zero-loss rate for one frame size.
func (s *Store) SetThroughput(frameSize uint32, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result.Throughput == nil {
		s.result.Throughput = make(map[uint32]float64)
	}
	s.result.Throughput[frameSize] = rate
}

// ThroughputRate returns the stored throughput rate for a frame size.
// The second return value reports whether a rate is present; callers fall
// back to the payload rate when it is not.
func (s *Store) ThroughputRate(frameSize uint32) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rate, ok := s.result.Throughput[frameSize]
	return rate, ok
}

// SetLatency records the mean one-way latency for one frame size.
func (s *Store) SetLatency(frameSize uint32, meanMicros float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result.Latency == nil {
		s.result.Latency = make(map[uint32]float64)
	}
	s.result.Latency[frameSize] = meanMicros
}

// SetFrameLossRate records the rate-percentage -> loss-percentage map for
// one frame size. The map is copied.
func (s *Store) SetFrameLossRate(frameSize uint32, lossByRate map[uint32]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result.FrameLossRate == nil {
		s.result.FrameLossRate = make(map[uint32]map[uint32]float64)
	}
	s.result.FrameLossRate[frameSize] = maps.Clone(lossByRate)
}

// SetReset records the reset recovery time in seconds for one frame size.
// Zero means no reset was observed.
func (s *Store) SetReset(frameSize uint32, seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result.Reset == nil {
		s.result.Reset = make(map[uint32]float64)
	}
	s.result.Reset[frameSize] = seconds
}

// -------------------------------------------------------------------------
// Stored-Generator Log & Collected Statistics
// -------------------------------------------------------------------------

// AppendGenerator records a labelled traffic-generator snapshot. The
// descriptor is deep-copied with the given name so the statistics sink can
// attribute counters to the generator that produced them.
func (s *Store) AppendGenerator(data *tgen.TrafficGenData, name string) {
	named := data.Clone()
	named.Name = name

	s.mu.Lock()
	defer s.mu.Unlock()

	s.generators = append(s.generators, *named)
}

// Generators returns a copy of the stored traffic-generator log.
func (s *Store) Generators() []tgen.TrafficGenData {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]tgen.TrafficGenData, len(s.generators))
	copy(out, s.generators)
	return out
}

// AppendCollected records one statistics snapshot from an interval monitor.
func (s *Store) AppendCollected(stats tgen.Statistics) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.collected = append(s.collected, stats)
}

// AppendCollectedTimed records one timestamped statistics snapshot.
func (s *Store) AppendCollectedTimed(stats tgen.TimedStatistics) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.collectedTime = append(s.collectedTime, stats)
}

// CollectedCount returns the number of collected snapshots: untimed first,
// then timed.
func (s *Store) CollectedCount() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.collected), len(s.collectedTime)
}

// ResetCollected clears the collected statistics lists and the stored
// traffic-generator log in one operation. Invoked between benchmarks.
func (s *Store) ResetCollected() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.collected = nil
	s.collectedTime = nil
	s.generators = nil
}
