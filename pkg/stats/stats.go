// Package stats provides the numeric kernels behind usage analysis.
// Every function is total: empty or degenerate input yields 0, never a panic.
package stats

import (
	"math"
	"sort"
)

// Mean computes the arithmetic mean of values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// Variance computes the population variance of values.
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	mean := Mean(values)
	sumSquaredDiff := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquaredDiff += diff * diff
	}

	return sumSquaredDiff / float64(len(values))
}

// StdDev computes the population standard deviation of values.
func StdDev(values []float64) float64 {
	return math.Sqrt(Variance(values))
}

// Percentile computes the p-th percentile (0-100) using linear
// interpolation between order statistics. Empty input returns 0.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(values) == 1 {
		return values[0]
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := float64(len(sorted))
	rank := (p / 100.0) * (n - 1)

	lowerIndex := int(math.Floor(rank))
	upperIndex := int(math.Ceil(rank))

	if lowerIndex < 0 {
		return sorted[0]
	}
	if upperIndex >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	if lowerIndex == upperIndex {
		return sorted[lowerIndex]
	}

	lowerValue := sorted[lowerIndex]
	upperValue := sorted[upperIndex]
	fraction := rank - float64(lowerIndex)

	return lowerValue + (upperValue-lowerValue)*fraction
}

// MovingAverage computes a trailing moving average with the window
// clipped at the start of the sequence, so the output has the same
// length as the input. A window below 1 is treated as 1.
func MovingAverage(values []float64, window int) []float64 {
	if len(values) == 0 {
		return nil
	}
	if window < 1 {
		window = 1
	}

	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}

		count := i + 1
		if count > window {
			count = window
		}
		out[i] = sum / float64(count)
	}

	return out
}

// Trend computes the ordinary-least-squares slope of value against
// sample index. Sequences shorter than 2 return 0.
func Trend(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	n := float64(len(values))
	meanX := (n - 1) / 2
	meanY := Mean(values)

	numerator := 0.0
	denominator := 0.0
	for i, v := range values {
		dx := float64(i) - meanX
		numerator += dx * (v - meanY)
		denominator += dx * dx
	}

	if denominator == 0 {
		return 0
	}

	return numerator / denominator
}
