package stats

import (
	"math"
	"testing"
)

func TestMeanEmpty(t *testing.T) {
	if got := Mean(nil); got != 0 {
		t.Errorf("Expected 0 for empty input, got %f", got)
	}
}

func TestVarianceNonNegative(t *testing.T) {
	cases := [][]float64{
		{1, 2, 3, 4, 5},
		{0.1, 0.15, 0.2, 0.1},
		{5, 5, 5, 5},
		{-3, 7, 0.5},
		{42},
	}

	for _, values := range cases {
		if v := Variance(values); v < 0 {
			t.Errorf("Variance(%v) = %f, want >= 0", values, v)
		}
	}
}

func TestVarianceConstantSequence(t *testing.T) {
	if v := Variance([]float64{2, 2, 2}); v != 0 {
		t.Errorf("Expected 0 variance for constant sequence, got %f", v)
	}
}

func TestStdDevIsSqrtVariance(t *testing.T) {
	values := []float64{0.1, 0.4, 0.9, 0.3, 0.7}

	want := math.Sqrt(Variance(values))
	if got := StdDev(values); got != want {
		t.Errorf("StdDev = %f, want sqrt(Variance) = %f", got, want)
	}
}

func TestPercentileEmpty(t *testing.T) {
	if got := Percentile(nil, 95); got != 0 {
		t.Errorf("Expected 0 for empty input, got %f", got)
	}
}

func TestPercentileSingleValue(t *testing.T) {
	if got := Percentile([]float64{7}, 99); got != 7 {
		t.Errorf("Expected 7, got %f", got)
	}
}

func TestPercentileInterpolation(t *testing.T) {
	values := []float64{10, 20, 30, 40}

	// rank = 0.5*(4-1) = 1.5, halfway between 20 and 30
	if got := Percentile(values, 50); got != 25 {
		t.Errorf("P50 = %f, want 25", got)
	}

	if got := Percentile(values, 0); got != 10 {
		t.Errorf("P0 = %f, want 10", got)
	}
	if got := Percentile(values, 100); got != 40 {
		t.Errorf("P100 = %f, want 40", got)
	}
}

func TestPercentileDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Percentile(values, 50)

	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("Input slice mutated: %v", values)
	}
}

func TestMovingAverageLength(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	out := MovingAverage(values, 3)
	if len(out) != len(values) {
		t.Fatalf("Expected output length %d, got %d", len(values), len(out))
	}
}

func TestMovingAverageClippedWindow(t *testing.T) {
	values := []float64{2, 4, 6, 8}

	out := MovingAverage(values, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if math.Abs(out[i]-want[i]) > 1e-9 {
			t.Errorf("out[%d] = %f, want %f", i, out[i], want[i])
		}
	}
}

func TestMovingAverageEmpty(t *testing.T) {
	if out := MovingAverage(nil, 5); out != nil {
		t.Errorf("Expected nil for empty input, got %v", out)
	}
}

func TestTrendShortSequence(t *testing.T) {
	if got := Trend([]float64{1}); got != 0 {
		t.Errorf("Expected 0 for single sample, got %f", got)
	}
	if got := Trend(nil); got != 0 {
		t.Errorf("Expected 0 for empty input, got %f", got)
	}
}

func TestTrendLinearSequence(t *testing.T) {
	// y = 2x + 1 exactly
	values := []float64{1, 3, 5, 7, 9}

	if got := Trend(values); math.Abs(got-2) > 1e-9 {
		t.Errorf("Trend = %f, want 2", got)
	}
}

func TestTrendFlatSequence(t *testing.T) {
	values := []float64{4, 4, 4, 4}

	if got := Trend(values); math.Abs(got) > 1e-9 {
		t.Errorf("Trend = %f, want 0", got)
	}
}
