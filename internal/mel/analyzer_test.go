package mel

import (
	"math"
	"testing"
)

func testConfig() Config {
	return Config{NFft: 1024, Hop: 256, WinLen: 1024, SampleRate: 16000, NMels: 80, FMin: 40, FMax: 8000}
}

func TestExtractShape(t *testing.T) {
	n := 16000
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * 220 * float64(i) / 16000)
	}
	m, err := Extract(testConfig(), samples, 0, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if m.Rows() != 80 {
		t.Fatalf("rows = %d, want 80", m.Rows())
	}
	if m.Cols() < 10 {
		t.Fatalf("suspiciously few frames: %d", m.Cols())
	}
}

func TestExtractWithFormantShiftDoesNotPanic(t *testing.T) {
	n := 8000
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * 440 * float64(i) / 16000)
	}
	for _, keyShift := range []float64{-12, -3, 3, 12} {
		if _, err := Extract(testConfig(), samples, keyShift, 1, nil); err != nil {
			t.Fatalf("keyShift=%v: %v", keyShift, err)
		}
	}
}
