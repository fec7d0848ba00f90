// Package vocoder exposes the two opaque inference collaborators the
// render core depends on (§9 "External model invocation"): a mel-to-
// waveform vocoder and a complex-mask predictor used by the harmonic/noise
// separator bridge. The render core is agnostic of the inference runtime;
// this package's ONNX-backed implementations are the default runtime,
// grounded on the teacher pack's onnxruntime_go usage.
package vocoder

import "github.com/resamplr/hifigo/internal/matrix"

// Vocoder turns a mel spectrogram and f0 (Hz) contour into a waveform.
type Vocoder interface {
	SpecToWav(mel *matrix.FloatMatrix, f0 []float64) ([]float64, error)
}

// MaskModel predicts a complex multiplicative mask over a one-sided
// spectrogram, used by the harmonic/noise separator bridge (C7).
type MaskModel interface {
	PredictMask(real, imag []float64, bins, frames int) (maskRe, maskIm []float64, err error)
}
