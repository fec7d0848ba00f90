package fft

import (
	"math"
	"math/rand"
	"testing"
)

func TestRoundTripPowerOfTwo(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{1, 2, 4, 8, 16, 64, 256, 1024, 4096} {
		plan, err := Get(n)
		if err != nil {
			t.Fatalf("Get(%d): %v", n, err)
		}
		re := make([]float64, n)
		im := make([]float64, n)
		orig := make([]float64, n)
		for i := range re {
			re[i] = rng.Float64()*2 - 1
			orig[i] = re[i]
		}
		if err := plan.Transform(re, im, false); err != nil {
			t.Fatalf("forward N=%d: %v", n, err)
		}
		if err := plan.Transform(re, im, true); err != nil {
			t.Fatalf("inverse N=%d: %v", n, err)
		}
		var maxErr float64
		for i := range re {
			if d := math.Abs(re[i] - orig[i]); d > maxErr {
				maxErr = d
			}
			if math.Abs(im[i]) > maxErr {
				maxErr = math.Abs(im[i])
			}
		}
		if maxErr > 1e-4 {
			t.Fatalf("N=%d roundtrip L-inf error %e exceeds 1e-4", n, maxErr)
		}
	}
}

func TestBluesteinMatchesNaiveDFT(t *testing.T) {
	for _, n := range []int{3, 5, 7, 1025, 2047} {
		plan, err := Get(n)
		if err != nil {
			t.Fatalf("Get(%d): %v", n, err)
		}
		rng := rand.New(rand.NewSource(int64(n)))
		re := make([]float64, n)
		im := make([]float64, n)
		for i := range re {
			re[i] = rng.Float64()*2 - 1
		}
		wantRe, wantIm := naiveDFT(re, im)

		gotRe := make([]float64, n)
		gotIm := make([]float64, n)
		copy(gotRe, re)
		copy(gotIm, im)
		if err := plan.Transform(gotRe, gotIm, false); err != nil {
			t.Fatalf("forward N=%d: %v", n, err)
		}

		var maxErr float64
		for i := range gotRe {
			if d := math.Hypot(gotRe[i]-wantRe[i], gotIm[i]-wantIm[i]); d > maxErr {
				maxErr = d
			}
		}
		if maxErr > 1e-3 {
			t.Fatalf("N=%d Bluestein vs naive DFT L-inf error %e exceeds 1e-3", n, maxErr)
		}
	}
}

func TestBluesteinRoundTrip(t *testing.T) {
	for _, n := range []int{3, 5, 7, 1025, 2047} {
		plan, err := Get(n)
		if err != nil {
			t.Fatalf("Get(%d): %v", n, err)
		}
		rng := rand.New(rand.NewSource(int64(n) + 7))
		re := make([]float64, n)
		im := make([]float64, n)
		orig := make([]float64, n)
		for i := range re {
			re[i] = rng.Float64()*2 - 1
			orig[i] = re[i]
		}
		if err := plan.Transform(re, im, false); err != nil {
			t.Fatalf("forward N=%d: %v", n, err)
		}
		if err := plan.Transform(re, im, true); err != nil {
			t.Fatalf("inverse N=%d: %v", n, err)
		}
		var maxErr float64
		for i := range re {
			if d := math.Abs(re[i] - orig[i]); d > maxErr {
				maxErr = d
			}
		}
		if maxErr > 1e-3 {
			t.Fatalf("N=%d roundtrip L-inf error %e exceeds 1e-3", n, maxErr)
		}
	}
}

func naiveDFT(re, im []float64) ([]float64, []float64) {
	n := len(re)
	outRe := make([]float64, n)
	outIm := make([]float64, n)
	for k := 0; k < n; k++ {
		var sr, si float64
		for t := 0; t < n; t++ {
			theta := -2 * math.Pi * float64(k) * float64(t) / float64(n)
			c, s := math.Cos(theta), math.Sin(theta)
			sr += re[t]*c - im[t]*s
			si += re[t]*s + im[t]*c
		}
		outRe[k] = sr
		outIm[k] = si
	}
	return outRe, outIm
}

func TestGetIsMemoized(t *testing.T) {
	p1, err := Get(512)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := Get(512)
	if err != nil {
		t.Fatal(err)
	}
	if p1 != p2 {
		t.Fatalf("Get(512) returned distinct plans on second call")
	}
}
