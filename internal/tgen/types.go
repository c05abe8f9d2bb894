// Package tgen defines the wire types shared by the REST API, the dataplane
// client, and the benchmark engine: stream descriptors, statistics snapshots,
// port descriptors, and the RFC 2544 result record.
package tgen

import "time"

// -------------------------------------------------------------------------
// Encapsulation
// -------------------------------------------------------------------------

// Encapsulation identifies the L2/L2.5 encapsulation applied to a stream.
type Encapsulation string

// Recognized encapsulation modes.
const (
	EncapNone Encapsulation = "none"
	EncapVLAN Encapsulation = "vlan"
	EncapQinQ Encapsulation = "qinq"
	EncapMPLS Encapsulation = "mpls"
)

// -------------------------------------------------------------------------
// Stream & TrafficGenData
// -------------------------------------------------------------------------

// Stream describes one generated packet stream.
type Stream struct {
	// FrameSize is the Ethernet frame length in bytes (without overhead).
	FrameSize uint32 `json:"frame_size" yaml:"frame_size"`

	// TrafficRate is the offered rate in Gbit/s.
	TrafficRate float64 `json:"traffic_rate" yaml:"traffic_rate"`

	// Encapsulation selects the frame encapsulation. Empty means none.
	Encapsulation Encapsulation `json:"encapsulation,omitempty" yaml:"encapsulation,omitempty"`

	// NumberOfLSE is the MPLS label stack depth. Only meaningful for EncapMPLS.
	NumberOfLSE uint8 `json:"number_of_lse,omitempty" yaml:"number_of_lse,omitempty"`

	// VXLAN enables VXLAN tunneling of the stream.
	VXLAN bool `json:"vxlan,omitempty" yaml:"vxlan,omitempty"`

	// Burst is the number of packets sent back-to-back per generation cycle.
	Burst uint16 `json:"burst,omitempty" yaml:"burst,omitempty"`
}

// Overhead returns the per-frame encapsulation overhead in bytes.
// VLAN adds 4 bytes, QinQ 8, MPLS 4 per label stack entry, VXLAN 50.
func (s Stream) Overhead() uint32 {
	var overhead uint32

	switch s.Encapsulation {
	case EncapVLAN:
		overhead = 4
	case EncapQinQ:
		overhead = 8
	case EncapMPLS:
		overhead = uint32(s.NumberOfLSE) * 4
	case EncapNone:
	default:
	}

	if s.VXLAN {
		overhead += 50
	}

	return overhead
}

// TrafficGenData is the caller-supplied benchmark descriptor. Streams[0] is
// the driven stream: the benchmark engine sweeps its frame size and rate.
type TrafficGenData struct {
	// Streams is the configured stream set. Must contain at least one entry.
	Streams []Stream `json:"streams" yaml:"streams"`

	// Name is an optional display name attached when the descriptor is
	// recorded in the stored-generator log.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Mode selects the generation mode understood by the dataplane agent
	// (e.g. "cbr", "poisson"). Empty means the agent default.
	Mode string `json:"mode,omitempty" yaml:"mode,omitempty"`
}

// Clone returns a deep copy. Benchmarks clone per iteration so the caller's
// payload is never mutated.
func (d *TrafficGenData) Clone() *TrafficGenData {
	if d == nil {
		return nil
	}
	clone := *d
	clone.Streams = make([]Stream, len(d.Streams))
	copy(clone.Streams, d.Streams)
	return &clone
}

// -------------------------------------------------------------------------
// Statistics Snapshot
// -------------------------------------------------------------------------

// RangeCount is one frame-size histogram bucket with its packet count.
type RangeCount struct {
	// Low and High bound the frame sizes counted by this bucket, inclusive.
	Low  uint32 `json:"low"`
	High uint32 `json:"high"`

	// Packets is the number of frames observed in the bucket.
	Packets uint64 `json:"packets"`
}

// FrameSizeStats holds per-port TX and RX frame-size histograms.
type FrameSizeStats struct {
	TX []RangeCount `json:"tx"`
	RX []RangeCount `json:"rx"`
}

// RTTStats summarizes the round-trip-time distribution of one flow.
// All values are in nanoseconds.
type RTTStats struct {
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min,omitempty"`
	Max    float64 `json:"max,omitempty"`
	Jitter float64 `json:"jitter,omitempty"`

	// N is the number of samples behind the summary.
	N uint64 `json:"n,omitempty"`
}

// Statistics is an immutable point-in-time view of the ASIC counters.
type Statistics struct {
	// FrameSize maps a dev port to its TX/RX frame-size histograms.
	FrameSize map[uint32]FrameSizeStats `json:"frame_size"`

	// PacketLoss maps a dev port to its total lost packets. Monotonically
	// non-decreasing over the lifetime of an experiment unless the counter
	// is externally zeroed.
	PacketLoss map[uint32]uint64 `json:"packet_loss"`

	// RTTs maps a flow identifier to its RTT summary.
	RTTs map[uint32]RTTStats `json:"rtts"`
}

// TotalTxPackets sums the TX packet counts over all ports and buckets.
func (s *Statistics) TotalTxPackets() uint64 {
	var total uint64
	for _, fs := range s.FrameSize {
		for _, bucket := range fs.TX {
			total += bucket.Packets
		}
	}
	return total
}

// TotalPacketLoss sums the per-port loss counters.
func (s *Statistics) TotalPacketLoss() uint64 {
	var total uint64
	for _, loss := range s.PacketLoss {
		total += loss
	}
	return total
}

// TimedStatistics is a statistics snapshot with its collection time,
// appended by the interval monitors while an experiment runs.
type TimedStatistics struct {
	Time  time.Time  `json:"time"`
	Stats Statistics `json:"stats"`
}

// -------------------------------------------------------------------------
// Ports
// -------------------------------------------------------------------------

// Speed is a port speed from the fixed hardware enumeration.
type Speed string

// Port speeds supported by the ASIC.
const (
	Speed1G   Speed = "1G"
	Speed10G  Speed = "10G"
	Speed20G  Speed = "20G"
	Speed40G  Speed = "40G"
	Speed50G  Speed = "50G"
	Speed100G Speed = "100G"
)

// Gbps returns the speed in Gbit/s. Unknown speeds map to 0.
func (s Speed) Gbps() float64 {
	switch s {
	case Speed1G:
		return 1
	case Speed10G:
		return 10
	case Speed20G:
		return 20
	case Speed40G:
		return 40
	case Speed50G:
		return 50
	case Speed100G:
		return 100
	default:
		return 0
	}
}

// Port describes one front-panel port as reported by the port manager.
type Port struct {
	// Port is the front-panel port number.
	Port uint32 `json:"port"`

	// DevPort is the internal device port number.
	DevPort uint32 `json:"dev_port"`

	// Speed is the configured port speed.
	Speed Speed `json:"speed"`

	// TrafficGen marks the port as usable for traffic generation.
	TrafficGen bool `json:"traffic_gen"`
}

// MaxLineRate returns the largest speed among traffic-generation ports,
// in Gbit/s. Defaults to 1 Gbit/s when no TG port is known.
func MaxLineRate(ports []Port) float64 {
	maxSpeed := 1.0
	for _, p := range ports {
		if !p.TrafficGen {
			continue
		}
		if gbps := p.Speed.Gbps(); gbps > maxSpeed {
			maxSpeed = gbps
		}
	}
	return maxSpeed
}

// -------------------------------------------------------------------------
// Test Result
// -------------------------------------------------------------------------

// TestResult is the authoritative record of the RFC 2544 benchmark outputs.
// A nil map means the corresponding test has not produced a result yet.
type TestResult struct {
	// Throughput maps a frame size to the maximum zero-loss rate in Gbit/s.
	Throughput map[uint32]float64 `json:"throughput,omitempty"`

	// Latency maps a frame size to the mean one-way latency in microseconds.
	Latency map[uint32]float64 `json:"latency,omitempty"`

	// FrameLossRate maps a frame size to a rate-percentage -> loss-percentage map.
	FrameLossRate map[uint32]map[uint32]float64 `json:"frame_loss_rate,omitempty"`

	// Reset maps a frame size to the recovery time in seconds.
	// Zero means no reset was observed.
	Reset map[uint32]float64 `json:"reset,omitempty"`

	// Running is true while any benchmark is active.
	Running bool `json:"running"`

	// CurrentTest is the human-readable label of the active sub-test.
	CurrentTest string `json:"current_test,omitempty"`
}
