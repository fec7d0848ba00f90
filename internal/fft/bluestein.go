package fft

import "math"

// bluesteinPlan holds the chirp tables and convolution kernel FFT for an
// arbitrary-length transform, per spec §4.1: multiply by the chirp, zero-pad
// to the next power of two M >= 2N-1, convolve with the precomputed kernel
// FFT, inverse-transform, multiply by the chirp again, and scale.
type bluesteinPlan struct {
	n int
	m int

	chirpRe []float64
	chirpIm []float64

	kernelFFTRe []float64 // FFT of the conjugate chirp kernel, length m
	kernelFFTIm []float64

	radix *Plan // power-of-two plan for size m
}

func newBluesteinPlan(n int) (*bluesteinPlan, error) {
	m := nextPowerOfTwo(2*n - 1)
	radix, err := Get(m)
	if err != nil {
		return nil, err
	}

	chirpRe := make([]float64, n)
	chirpIm := make([]float64, n)
	for k := 0; k < n; k++ {
		// exp(-i*pi*k^2/n); use k^2 mod 2n to keep the argument bounded.
		kk := (int64(k) * int64(k)) % (2 * int64(n))
		theta := -math.Pi * float64(kk) / float64(n)
		chirpRe[k] = math.Cos(theta)
		chirpIm[k] = math.Sin(theta)
	}

	kernelRe := make([]float64, m)
	kernelIm := make([]float64, m)
	kernelRe[0] = chirpRe[0]
	kernelIm[0] = -chirpIm[0]
	for k := 1; k < n; k++ {
		kernelRe[k] = chirpRe[k]
		kernelIm[k] = -chirpIm[k]
		kernelRe[m-k] = chirpRe[k]
		kernelIm[m-k] = -chirpIm[k]
	}

	if err := radix.Transform(kernelRe, kernelIm, false); err != nil {
		return nil, err
	}

	return &bluesteinPlan{
		n:           n,
		m:           m,
		chirpRe:     chirpRe,
		chirpIm:     chirpIm,
		kernelFFTRe: kernelRe,
		kernelFFTIm: kernelIm,
		radix:       radix,
	}, nil
}

func (b *bluesteinPlan) transform(re, im []float64, inverse bool) error {
	n, m := b.n, b.m

	ar := make([]float64, m)
	ai := make([]float64, m)
	for k := 0; k < n; k++ {
		cr, ci := b.chirpRe[k], b.chirpIm[k]
		if inverse {
			ci = -ci
		}
		ar[k] = re[k]*cr - im[k]*ci
		ai[k] = re[k]*ci + im[k]*cr
	}

	if err := b.radix.Transform(ar, ai, false); err != nil {
		return err
	}

	for i := 0; i < m; i++ {
		kr, ki := b.kernelFFTRe[i], b.kernelFFTIm[i]
		if inverse {
			ki = -ki
		}
		pr := ar[i]*kr - ai[i]*ki
		pi := ar[i]*ki + ai[i]*kr
		ar[i] = pr
		ai[i] = pi
	}

	if err := b.radix.Transform(ar, ai, true); err != nil {
		return err
	}

	invN := 1.0
	if inverse {
		invN = 1.0 / float64(n)
	}
	for k := 0; k < n; k++ {
		cr, ci := b.chirpRe[k], b.chirpIm[k]
		if inverse {
			ci = -ci
		}
		re[k] = (ar[k]*cr - ai[k]*ci) * invN
		im[k] = (ar[k]*ci + ai[k]*cr) * invN
	}
	return nil
}

func nextPowerOfTwo(n int) int {
	if n < 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
