package stft

import (
	"math"
	"sync"
)

var windowCache sync.Map // map[int][]float64

// HannWindow returns the periodic Hann window of the given length, building
// it once per length and caching it process-wide (mirrors the teacher's
// process-wide FFT plan cache).
func HannWindow(length int) []float64 {
	if length <= 0 {
		return nil
	}
	if v, ok := windowCache.Load(length); ok {
		return v.([]float64)
	}
	w := buildHann(length)
	actual, _ := windowCache.LoadOrStore(length, w)
	return actual.([]float64)
}

func buildHann(length int) []float64 {
	if length == 1 {
		return []float64{1}
	}
	w := make([]float64, length)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(length))
	}
	return w
}
