// Package stats provides the robust sample statistics the market aggregator
// is built on.
package stats

import "sort"

// Median returns the median of values. An empty slice yields 0; an even count
// yields the average of the two middle values. The input is not modified.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := n / 2
	if n%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// trimFraction is the share of samples discarded from each end before taking
// the median. Suppresses luxury/outlier skew in small per-zip buckets.
const trimFraction = 0.15

// TrimmedMedian returns the median after discarding the lowest and highest
// 15% of samples (floor of 15% x n from each end). Fewer than 5 samples fall
// back to the plain median.
func TrimmedMedian(values []float64) float64 {
	n := len(values)
	if n < 5 {
		return Median(values)
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	trim := int(float64(n) * trimFraction)
	trimmed := sorted[trim : n-trim]

	return Median(trimmed)
}
