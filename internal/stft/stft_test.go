package stft

import (
	"math"
	"runtime"
	"testing"
)

func TestHannWindowEdgeCases(t *testing.T) {
	if w := HannWindow(1); len(w) != 1 || w[0] != 1 {
		t.Fatalf("HannWindow(1) = %v, want [1]", w)
	}
	w := HannWindow(8)
	if len(w) != 8 {
		t.Fatalf("len = %d, want 8", len(w))
	}
	if w[0] != 0 {
		t.Fatalf("w[0] = %v, want 0", w[0])
	}
}

func TestForwardInverseRoundTripSinusoid(t *testing.T) {
	const sr = 16000
	const nFft = 1024
	const hop = 256
	const freq = 440.0

	n := sr * 2
	signal := make([]float64, n)
	for i := range signal {
		signal[i] = math.Sin(2 * math.Pi * freq * float64(i) / sr)
	}

	window := HannWindow(nFft)
	spec, err := Forward(signal, nFft, hop, nFft, window, true, nil)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}

	recon, err := Inverse(spec, window, true, len(signal), nil)
	if err != nil {
		t.Fatalf("Inverse: %v", err)
	}
	if len(recon) != len(signal) {
		t.Fatalf("reconstructed length %d, want %d", len(recon), len(signal))
	}

	lo, hi := nFft, len(signal)-nFft
	var sumSq, sumErrSq float64
	for i := lo; i < hi; i++ {
		d := recon[i] - signal[i]
		sumErrSq += d * d
		sumSq += signal[i] * signal[i]
	}
	rms := math.Sqrt(sumErrSq / float64(hi-lo))
	if rms > 1e-3 {
		t.Fatalf("interior RMS error %e exceeds 1e-3", rms)
	}
	_ = sumSq
}

func TestForwardParallelMatchesSerial(t *testing.T) {
	n := 16000
	signal := make([]float64, n)
	for i := range signal {
		signal[i] = math.Sin(2 * math.Pi * 220 * float64(i) / 16000)
	}
	window := HannWindow(1024)

	// GOMAXPROCS(1) forces Forward onto its serial frame loop.
	prev := runtime.GOMAXPROCS(1)
	specSerial, err := Forward(signal, 1024, 256, 1024, window, true, nil)
	runtime.GOMAXPROCS(prev)
	if err != nil {
		t.Fatal(err)
	}
	if specSerial.Frames < parallelFrameThreshold {
		t.Fatalf("test setup: need frames >= %d, got %d", parallelFrameThreshold, specSerial.Frames)
	}

	specParallel, err := Forward(signal, 1024, 256, 1024, window, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	if specParallel.Frames != specSerial.Frames || specParallel.Bins != specSerial.Bins {
		t.Fatalf("shape mismatch: parallel %dx%d, serial %dx%d", specParallel.Bins, specParallel.Frames, specSerial.Bins, specSerial.Frames)
	}
	for i := range specSerial.Real {
		if specParallel.Real[i] != specSerial.Real[i] || specParallel.Imag[i] != specSerial.Imag[i] {
			t.Fatalf("parallel and serial spectra differ at index %d", i)
		}
	}
}

func TestForwardRejectsOversizedWinLen(t *testing.T) {
	if _, err := Forward(make([]float64, 100), 64, 16, 128, HannWindow(128), false, nil); err == nil {
		t.Fatal("expected error for winLen > nFft")
	}
}
