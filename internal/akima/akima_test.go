package akima

import (
	"math"
	"testing"
)

func TestExactAtKnots(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4, 5}
	y := []float64{0, 2, 1, 3, 3.5, 0}
	interp, err := New(x, y)
	if err != nil {
		t.Fatal(err)
	}
	for i := range x {
		got := interp.Eval(x[i])
		if math.Abs(got-y[i]) > 1e-9 {
			t.Fatalf("Eval(x[%d]=%v) = %v, want %v", i, x[i], got, y[i])
		}
	}
}

func TestMonotoneInputsYieldMonotoneOutput(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4, 5}
	y := []float64{0, 1, 2, 3, 4, 5}
	interp, err := New(x, y)
	if err != nil {
		t.Fatal(err)
	}
	var prev float64 = math.Inf(-1)
	for xi := -1.0; xi <= 6.0; xi += 0.05 {
		v := interp.Eval(xi)
		if v < prev-1e-9 {
			t.Fatalf("non-monotone output at xi=%v: %v < prev %v", xi, v, prev)
		}
		prev = v
	}
}

func TestExtrapolationUsesEdgePolynomial(t *testing.T) {
	x := []float64{0, 1, 2, 3}
	y := []float64{0, 1, 4, 9}
	interp, err := New(x, y)
	if err != nil {
		t.Fatal(err)
	}
	// The edge intervals' cubics reproduce y = x^2 for these knots, so
	// continuing them past the ends gives Eval(-1) = 1 and Eval(4) = 16.
	left := interp.Eval(-1)
	right := interp.Eval(4)
	if math.IsNaN(left) || math.IsNaN(right) {
		t.Fatal("extrapolation produced NaN")
	}
	if math.Abs(left-1) > 1e-9 {
		t.Fatalf("Eval(-1) = %v, want 1 from the first interval's cubic", left)
	}
	if math.Abs(right-16) > 1e-9 {
		t.Fatalf("Eval(4) = %v, want 16 from the last interval's cubic", right)
	}
}

func TestRejectsNonIncreasingKnots(t *testing.T) {
	if _, err := New([]float64{0, 1, 1, 2}, []float64{0, 1, 2, 3}); err == nil {
		t.Fatal("expected error for non-increasing knots")
	}
}

func TestRejectsTooFewKnots(t *testing.T) {
	if _, err := New([]float64{0}, []float64{0}); err == nil {
		t.Fatal("expected error for fewer than 2 knots")
	}
}
