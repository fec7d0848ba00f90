// Package mel implements the Slaney-scale mel filter bank (C3) and the
// pitch-aware mel spectrogram analyzer (C4).
package mel

import (
	"fmt"
	"math"
	"sync"

	"github.com/resamplr/hifigo/internal/matrix"
)

type filterBankKey struct {
	nMels      int
	nFft       int
	sampleRate int
	fMin       float64
	fMax       float64
}

var filterBankCache sync.Map // map[filterBankKey]*matrix.FloatMatrix

// hzToSlaney converts a frequency in Hz to the Slaney mel scale.
func hzToSlaney(hz float64) float64 {
	if hz < 1000 {
		return hz / (200.0 / 3.0)
	}
	return 15.0 + math.Log(hz/1000.0)/0.06875178
}

// slaneyToHz is the inverse of hzToSlaney.
func slaneyToHz(mel float64) float64 {
	if mel < 15 {
		return mel * (200.0 / 3.0)
	}
	return 1000.0 * math.Exp((mel-15.0)*0.06875178)
}

// FilterBank returns the process-wide (nMels x (nFft/2+1)) triangular mel
// filter matrix for the given parameters, building it once.
func FilterBank(nMels, nFft, sampleRate int, fMin, fMax float64) (*matrix.FloatMatrix, error) {
	if nMels < 1 || nFft < 2 {
		return nil, fmt.Errorf("mel: invalid filter bank parameters nMels=%d nFft=%d", nMels, nFft)
	}
	nyquist := float64(sampleRate) / 2
	if fMin < 0 {
		fMin = 0
	}
	if fMin > nyquist {
		fMin = nyquist
	}
	if fMax < fMin+1 {
		fMax = fMin + 1
	}
	if fMax > nyquist {
		fMax = nyquist
	}

	key := filterBankKey{nMels: nMels, nFft: nFft, sampleRate: sampleRate, fMin: fMin, fMax: fMax}
	if v, ok := filterBankCache.Load(key); ok {
		return v.(*matrix.FloatMatrix), nil
	}

	fb := buildFilterBank(nMels, nFft, sampleRate, fMin, fMax)
	actual, _ := filterBankCache.LoadOrStore(key, fb)
	return actual.(*matrix.FloatMatrix), nil
}

func buildFilterBank(nMels, nFft, sampleRate int, fMin, fMax float64) *matrix.FloatMatrix {
	bins := nFft/2 + 1
	melMin := hzToSlaney(fMin)
	melMax := hzToSlaney(fMax)

	points := make([]float64, nMels+2)
	for i := range points {
		frac := float64(i) / float64(nMels+1)
		points[i] = slaneyToHz(melMin + frac*(melMax-melMin))
	}

	binHz := func(bin int) float64 {
		return float64(bin) * float64(sampleRate) / float64(nFft)
	}

	fb := matrix.New(nMels, bins)
	for m := 0; m < nMels; m++ {
		lower, center, upper := points[m], points[m+1], points[m+2]
		row := fb.Row(m)
		norm := 0.0
		if upper > lower {
			norm = 2.0 / (upper - lower)
		}
		for b := 0; b < bins; b++ {
			hz := binHz(b)
			var tri float64
			switch {
			case hz < lower || hz > upper:
				tri = 0
			case hz <= center:
				if center > lower {
					tri = (hz - lower) / (center - lower)
				}
			default:
				if upper > center {
					tri = (upper - hz) / (upper - center)
				}
			}
			w := norm * tri
			if w < 0 {
				w = 0
			}
			row[b] = float32(w)
		}
	}
	return fb
}
