package bench

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// confidenceLevel is the two-sided confidence level of the latency interval.
const confidenceLevel = 0.95

// sampleMean returns the arithmetic mean of the samples.
// The caller guarantees at least one sample.
func sampleMean(samples []float64) float64 {
	var sum float64
	for _, x := range samples {
		sum += x
	}
	return sum / float64(len(samples))
}

// sampleStdDev returns the unbiased (n-1) standard deviation.
// The caller guarantees at least two samples.
func sampleStdDev(samples []float64, mean float64) float64 {
	var sum float64
	for _, x := range samples {
		d := x - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(samples)-1))
}

// confidenceMargin returns the two-sided 95% confidence margin of the mean
// using the Student-t inverse CDF with n-1 degrees of freedom.
func confidenceMargin(stdDev float64, n int) float64 {
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}
	quantile := t.Quantile(1 - (1-confidenceLevel)/2)
	return quantile * stdDev / math.Sqrt(float64(n))
}
