package tgen_test

import (
	"testing"

	"github.com/dantte-lp/gop4tg/internal/tgen"
)

func TestStreamOverhead(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		stream tgen.Stream
		want   uint32
	}{
		{"none", tgen.Stream{Encapsulation: tgen.EncapNone}, 0},
		{"empty means none", tgen.Stream{}, 0},
		{"vlan", tgen.Stream{Encapsulation: tgen.EncapVLAN}, 4},
		{"qinq", tgen.Stream{Encapsulation: tgen.EncapQinQ}, 8},
		{"mpls three labels", tgen.Stream{Encapsulation: tgen.EncapMPLS, NumberOfLSE: 3}, 12},
		{"vxlan", tgen.Stream{VXLAN: true}, 50},
		{"vlan over vxlan", tgen.Stream{Encapsulation: tgen.EncapVLAN, VXLAN: true}, 54},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.stream.Overhead(); got != tt.want {
				t.Errorf("Overhead() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTrafficGenDataClone(t *testing.T) {
	t.Parallel()

	orig := &tgen.TrafficGenData{
		Streams: []tgen.Stream{{FrameSize: 64, TrafficRate: 10}},
		Name:    "base",
	}

	clone := orig.Clone()
	clone.Streams[0].TrafficRate = 99
	clone.Name = "changed"

	if orig.Streams[0].TrafficRate != 10 {
		t.Errorf("original rate = %v after clone mutation, want 10", orig.Streams[0].TrafficRate)
	}
	if orig.Name != "base" {
		t.Errorf("original name = %q after clone mutation, want base", orig.Name)
	}
}

func TestSpeedGbps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		speed tgen.Speed
		want  float64
	}{
		{tgen.Speed1G, 1},
		{tgen.Speed10G, 10},
		{tgen.Speed20G, 20},
		{tgen.Speed40G, 40},
		{tgen.Speed50G, 50},
		{tgen.Speed100G, 100},
		{tgen.Speed("400G"), 0},
	}

	for _, tt := range tests {
		if got := tt.speed.Gbps(); got != tt.want {
			t.Errorf("%s.Gbps() = %v, want %v", tt.speed, got, tt.want)
		}
	}
}

func TestMaxLineRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		ports []tgen.Port
		want  float64
	}{
		{"no ports defaults to 1G", nil, 1},
		{
			"largest TG port wins",
			[]tgen.Port{
				{Speed: tgen.Speed10G, TrafficGen: true},
				{Speed: tgen.Speed100G, TrafficGen: true},
				{Speed: tgen.Speed40G, TrafficGen: true},
			},
			100,
		},
		{
			"non-TG ports ignored",
			[]tgen.Port{
				{Speed: tgen.Speed100G, TrafficGen: false},
				{Speed: tgen.Speed10G, TrafficGen: true},
			},
			10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tgen.MaxLineRate(tt.ports); got != tt.want {
				t.Errorf("MaxLineRate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatisticsTotals(t *testing.T) {
	t.Parallel()

	stats := &tgen.Statistics{
		FrameSize: map[uint32]tgen.FrameSizeStats{
			136: {
				TX: []tgen.RangeCount{
					{Low: 64, High: 127, Packets: 1000},
					{Low: 128, High: 511, Packets: 500},
				},
				RX: []tgen.RangeCount{{Low: 64, High: 127, Packets: 900}},
			},
			144: {TX: []tgen.RangeCount{{Low: 64, High: 127, Packets: 250}}},
		},
		PacketLoss: map[uint32]uint64{137: 40, 145: 2},
	}

	if got := stats.TotalTxPackets(); got != 1750 {
		t.Errorf("TotalTxPackets = %d, want 1750 (RX buckets must not count)", got)
	}
	if got := stats.TotalPacketLoss(); got != 42 {
		t.Errorf("TotalPacketLoss = %d, want 42", got)
	}
}
