// Package hnsep implements the harmonic/noise separator bridge (C7): an
// STFT -> complex-mask multiply -> ISTFT roundtrip around an opaque mask
// model, plus the flag-driven harmonic/breath mixing of §4.7.
package hnsep

import (
	"github.com/resamplr/hifigo/internal/model"
	"github.com/resamplr/hifigo/internal/renderctx"
	"github.com/resamplr/hifigo/internal/stft"
	"github.com/resamplr/hifigo/internal/vocoder"
)

const (
	nFft   = 2048
	hop    = 512
	winLen = nFft
)

// Separator wraps a mask model with the bridge's fixed STFT parameters.
type Separator struct {
	Model vocoder.MaskModel
}

// SeparateHarmonic returns the harmonic component of samples, the same
// length as the input. Any failure — mask-model error or a malformed
// mask shape — collapses to a no-op copy of the input, per §4.7/§7's
// ExternalModelFailure handling for the separator.
func (s *Separator) SeparateHarmonic(samples []float64) []float64 {
	out, err := s.separate(samples)
	if err != nil {
		cp := make([]float64, len(samples))
		copy(cp, samples)
		return cp
	}
	return out
}

func (s *Separator) separate(samples []float64) ([]float64, error) {
	if s.Model == nil {
		return nil, renderctx.Wrap(renderctx.KindExternalModel, nil, "hnsep: no mask model configured")
	}
	window := stft.HannWindow(winLen)
	spec, err := stft.Forward(samples, nFft, hop, winLen, window, true, nil)
	if err != nil {
		return nil, err
	}

	maskRe, maskIm, err := s.Model.PredictMask(spec.Real, spec.Imag, spec.Bins, spec.Frames)
	if err != nil {
		return nil, renderctx.Wrap(renderctx.KindExternalModel, err, "hnsep: mask model inference")
	}
	if len(maskRe) != len(spec.Real) || len(maskIm) != len(spec.Imag) {
		return nil, renderctx.Invalid("hnsep: mask shape mismatch: got %d/%d want %d", len(maskRe), len(maskIm), len(spec.Real))
	}

	for i := range spec.Real {
		re, im := spec.Real[i], spec.Imag[i]
		mr, mi := maskRe[i], maskIm[i]
		spec.Real[i] = re*mr - im*mi
		spec.Imag[i] = re*mi + im*mr
	}

	return stft.Inverse(spec, window, true, len(samples), nil)
}

// ApplyHnSepFlags mixes the original and separated (harmonic) signals per
// §4.7: a plain breath/voice blend when tension is flat, or a one-pole
// pre-emphasized blend when Ht != 0.
func ApplyHnSepFlags(original, separated []float64, flags model.Flags) []float64 {
	n := len(original)
	if len(separated) < n {
		n = len(separated)
	}
	hb := float64(clampInt(flags.Hb, 0, 500)) / 100
	hv := float64(clampInt(flags.Hv, 0, 150)) / 100

	out := make([]float64, n)
	if flags.Ht == 0 {
		for i := 0; i < n; i++ {
			out[i] = hb*(original[i]-separated[i]) + hv*separated[i]
		}
		return out
	}

	tensionScale := -float64(flags.Ht) / 50
	lowBlend := clampFloat(tensionScale/2, -1, 1)
	voiced := make([]float64, n)
	copy(voiced, separated[:n])
	preemph := make([]float64, n)
	for i := 0; i < n; i++ {
		var prev float64
		if i > 0 {
			prev = voiced[i-1]
		}
		preemph[i] = voiced[i] + lowBlend*(voiced[i]-0.95*prev)
	}
	for i := 0; i < n; i++ {
		out[i] = hb*(original[i]-separated[i]) + hv*preemph[i]
	}
	return out
}

// Engaged reports whether the §4.7 separator/mix stage needs to run at
// all for these flags.
func Engaged(flags model.Flags) bool {
	return flags.Ht != 0 || flags.Hb != flags.Hv
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
