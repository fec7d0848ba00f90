package wavio

import (
	"math"
	"path/filepath"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.wav")

	n := 4410
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.25 * math.Sin(2*math.Pi*440*float64(i)/44100)
	}

	if err := WriteMono(path, samples, 44100); err != nil {
		t.Fatal(err)
	}
	got, err := ReadMono(path, 44100)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != n {
		t.Fatalf("length = %d, want %d", len(got), n)
	}
	var maxErr float64
	for i := range samples {
		if d := math.Abs(got[i] - samples[i]); d > maxErr {
			maxErr = d
		}
	}
	if maxErr > 1e-3 {
		t.Fatalf("max reconstruction error %e exceeds 1e-3 (16-bit quantization)", maxErr)
	}
}

func TestReadMonoMissingFile(t *testing.T) {
	if _, err := ReadMono(filepath.Join(t.TempDir(), "missing.wav"), 44100); err == nil {
		t.Fatal("expected error for missing file")
	}
}
