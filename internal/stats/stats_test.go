package stats

import "testing"

func TestMedianEmpty(t *testing.T) {
	if got := Median(nil); got != 0 {
		t.Errorf("Median(nil): got %v, want 0", got)
	}
}

func TestMedianOdd(t *testing.T) {
	if got := Median([]float64{5, 1, 3}); got != 3 {
		t.Errorf("Median odd: got %v, want 3", got)
	}
}

func TestMedianEven(t *testing.T) {
	if got := Median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Errorf("Median even: got %v, want 2.5", got)
	}
}

func TestMedianDoesNotMutateInput(t *testing.T) {
	in := []float64{3, 1, 2}
	Median(in)
	if in[0] != 3 || in[1] != 1 || in[2] != 2 {
		t.Errorf("Median mutated its input: %v", in)
	}
}

func TestTrimmedMedianSmallSampleEqualsMedian(t *testing.T) {
	samples := [][]float64{
		{},
		{100},
		{100, 200},
		{100, 200, 300},
		{100, 200, 300, 400},
	}
	for _, s := range samples {
		if got, want := TrimmedMedian(s), Median(s); got != want {
			t.Errorf("TrimmedMedian(%v): got %v, want %v (plain median)", s, got, want)
		}
	}
}

func TestTrimmedMedianDiscardsOutliers(t *testing.T) {
	base := []float64{100, 110, 120, 130, 140, 150, 160}
	want := TrimmedMedian(base)

	// A single extreme outlier beyond the trim fraction must not move the result.
	withOutlier := append([]float64{5000000}, base...)
	if got := TrimmedMedian(withOutlier); got != want {
		t.Errorf("TrimmedMedian with outlier: got %v, want %v", got, want)
	}

	withLowOutlier := append([]float64{1}, base...)
	if got := TrimmedMedian(withLowOutlier); got != want {
		t.Errorf("TrimmedMedian with low outlier: got %v, want %v", got, want)
	}
}

func TestTrimmedMedianTrimCount(t *testing.T) {
	// 10 samples: floor(1.5)=1 trimmed from each end, median of remaining 8.
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 1000}
	// trimmed -> [2..9], median = 5.5
	if got := TrimmedMedian(values); got != 5.5 {
		t.Errorf("TrimmedMedian: got %v, want 5.5", got)
	}
}
