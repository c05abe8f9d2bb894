package bench

import (
	"math"
	"testing"
)

// latencySamples is the documented ten-repetition half-RTT trace in µs.
var latencySamples = []float64{10, 11, 9, 10.5, 9.5, 11.5, 8.5, 11, 10, 9}

func TestSampleMean(t *testing.T) {
	t.Parallel()

	if got := sampleMean(latencySamples); math.Abs(got-10.0) > 1e-9 {
		t.Errorf("mean = %v, want 10.0", got)
	}
}

func TestSampleStdDev(t *testing.T) {
	t.Parallel()

	mean := sampleMean(latencySamples)

	// Squared deviations sum to 9.0 exactly, so the unbiased (n-1)
	// standard deviation is 1.0.
	if got := sampleStdDev(latencySamples, mean); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("stddev = %v, want 1.0", got)
	}
}

// TestConfidenceMargin checks the two-sided 95% margin:
// t_{0.975,9} ~ 2.262, so margin = 2.262 * 1.0 / sqrt(10) ~ 0.715.
func TestConfidenceMargin(t *testing.T) {
	t.Parallel()

	mean := sampleMean(latencySamples)
	stdDev := sampleStdDev(latencySamples, mean)

	margin := confidenceMargin(stdDev, len(latencySamples))
	if math.Abs(margin-0.7154) > 0.005 {
		t.Errorf("margin = %v, want ~0.715", margin)
	}

	lower, upper := mean-margin, mean+margin
	if math.Abs(lower-9.285) > 0.01 || math.Abs(upper-10.715) > 0.01 {
		t.Errorf("CI = [%v, %v], want ~[9.285, 10.715]", lower, upper)
	}
}

func TestLossPercent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		totalTx uint64
		loss    uint64
		want    float64
	}{
		{"zero tx", 0, 500, 0},
		{"no loss", 100000, 0, 0},
		{"half", 100000, 50000, 50},
		{"rounded to three places", 3, 1, 33.333},
		{"all lost", 1000, 1000, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := LossPercent(tt.totalTx, tt.loss); got != tt.want {
				t.Errorf("LossPercent(%d, %d) = %v, want %v", tt.totalTx, tt.loss, got, tt.want)
			}
		})
	}
}

func TestRound3(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want float64
	}{
		{1.23456, 1.235},
		{1.2344, 1.234},
		{0, 0},
		{2.0006, 2.001},
	}

	for _, tt := range tests {
		if got := round3(tt.in); got != tt.want {
			t.Errorf("round3(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
