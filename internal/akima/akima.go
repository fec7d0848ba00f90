// Package akima implements 1-D Akima cubic interpolation (C6), used to
// resample the pitch-bend curve onto the render frame grid without the
// overshoot a plain cubic spline would introduce near outliers.
package akima

import (
	"sort"

	"github.com/resamplr/hifigo/internal/renderctx"
)

// Interpolator holds per-interval cubic coefficients derived from a
// strictly increasing set of knots.
type Interpolator struct {
	x []float64
	y []float64
	b []float64 // per-knot linear coefficient
	c []float64 // per-knot quadratic coefficient
	d []float64 // per-knot cubic coefficient
}

// New builds an Akima interpolator from knots (x[i], y[i]). x must be
// strictly increasing with at least 2 points.
func New(x, y []float64) (*Interpolator, error) {
	n := len(x)
	if n != len(y) {
		return nil, renderctx.Invalid("akima: x and y length mismatch: %d vs %d", n, len(y))
	}
	if n < 2 {
		return nil, renderctx.Invalid("akima: need at least 2 knots, got %d", n)
	}
	if !sort.SliceIsSorted(x, func(i, j int) bool { return x[i] < x[j] }) {
		return nil, renderctx.Invalid("akima: knots must be strictly increasing")
	}
	for i := 1; i < n; i++ {
		if x[i] <= x[i-1] {
			return nil, renderctx.Invalid("akima: knots must be strictly increasing")
		}
	}

	// Per-interval slopes, extended by two points on each end.
	m := make([]float64, n+3) // index i+2 holds slope of interval i (i in [-2, n])
	for i := 0; i < n-1; i++ {
		m[i+2] = (y[i+1] - y[i]) / (x[i+1] - x[i])
	}
	// m[i+2] defined for i in [0, n-2]; extend left (i = -1, -2) and right (i = n-1, n).
	mAt := func(i int) float64 { return m[i+2] }

	// left extension: m[-1] = 2*m[0]-m[1], m[-2] = 2*m[-1]-m[0]
	mMinus1 := 2*mAt(0) - mAt(1)
	mMinus2 := 2*mMinus1 - mAt(0)
	m[0] = mMinus2 // index for i=-2
	m[1] = mMinus1 // index for i=-1

	// right extension mirrors the same recurrence at the other end.
	mN := 2*mAt(n-2) - mAt(n-3)
	mNPlus1 := 2*mN - mAt(n-2)
	m[n+1] = mN
	m[n+2] = mNPlus1

	t := make([]float64, n)
	for i := 0; i < n; i++ {
		w1 := abs(mAt(i+1) - mAt(i))
		w2 := abs(mAt(i-1) - mAt(i-2))
		if w1 < 1e-15 && w2 < 1e-15 {
			t[i] = (mAt(i-1) + mAt(i)) / 2
		} else {
			t[i] = (w1*mAt(i-1) + w2*mAt(i)) / (w1 + w2)
		}
	}

	b := make([]float64, n)
	c := make([]float64, n)
	d := make([]float64, n)
	for i := 0; i < n-1; i++ {
		dx := x[i+1] - x[i]
		slope := mAt(i)
		b[i] = t[i]
		c[i] = (3*slope - 2*t[i] - t[i+1]) / dx
		d[i] = (t[i] + t[i+1] - 2*slope) / (dx * dx)
	}
	return &Interpolator{
		x: append([]float64(nil), x...),
		y: append([]float64(nil), y...),
		b: b, c: c, d: d,
	}, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Eval evaluates the interpolant at xi. Outside [x[0], x[n-1]] it
// extrapolates using the nearest edge polynomial.
func (p *Interpolator) Eval(xi float64) float64 {
	idx := p.findInterval(xi)
	dx := xi - p.x[idx]
	return p.y[idx] + dx*(p.b[idx]+dx*(p.c[idx]+dx*p.d[idx]))
}

// findInterval returns the index i such that x[i] <= xi < x[i+1], clamped
// to [0, n-2] for extrapolation at the edges (binary search).
func (p *Interpolator) findInterval(xi float64) int {
	n := len(p.x)
	if xi <= p.x[0] {
		return 0
	}
	if xi >= p.x[n-1] {
		return n - 2
	}
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if p.x[mid] <= xi {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}
