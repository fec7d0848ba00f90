package mel

import (
	"math"

	"github.com/resamplr/hifigo/internal/matrix"
	"github.com/resamplr/hifigo/internal/renderctx"
	"github.com/resamplr/hifigo/internal/stft"
)

// Config holds the fixed analyzer parameters (§4.4), shared across calls
// to Extract for a given request.
type Config struct {
	NFft       int
	Hop        int
	WinLen     int
	SampleRate int
	NMels      int
	FMin       float64
	FMax       float64
}

// Extract computes the pitch-shifted mel spectrogram of samples: a
// formant-preserving analysis that shifts the implicit pitch axis by
// keyShift semitones while resampling the time axis by speed.
func Extract(cfg Config, samples []float64, keyShift, speed float64, canceller renderctx.Canceller) (*matrix.FloatMatrix, error) {
	factor := math.Exp2(keyShift / 12)
	nFftNew := roundInt(float64(cfg.NFft) * factor)
	winLenNew := roundInt(float64(cfg.WinLen) * factor)
	hopNew := roundInt(float64(cfg.Hop) * speed)
	if nFftNew < 1 || winLenNew < 1 || hopNew < 1 {
		return nil, renderctx.Invalid("mel: degenerate analysis parameters nFftNew=%d winLenNew=%d hopNew=%d", nFftNew, winLenNew, hopNew)
	}

	padLeft := (winLenNew - hopNew) / 2
	padRight := (winLenNew - hopNew + 1) / 2
	if padLeft < 0 {
		padLeft = 0
	}
	if padRight < 0 {
		padRight = 0
	}
	padded := stft.ReflectPad(samples, padLeft, padRight)

	window := stft.HannWindow(winLenNew)
	spec, err := stft.Forward(padded, nFftNew, hopNew, winLenNew, window, false, canceller)
	if err != nil {
		return nil, err
	}

	mag := magnitude(spec)

	targetBins := cfg.NFft/2 + 1
	rescaled := mag
	if factor != 1 || mag.Rows() != targetBins {
		rescaled = rescaleBins(mag, targetBins, factor)
	}

	fb, err := FilterBank(cfg.NMels, cfg.NFft, cfg.SampleRate, cfg.FMin, cfg.FMax)
	if err != nil {
		return nil, err
	}
	return matrix.Multiply(fb, rescaled)
}

func roundInt(v float64) int {
	return int(math.Round(v))
}

// magnitude computes sqrt(re^2+im^2) bin-by-bin into a (bins x frames)
// FloatMatrix.
func magnitude(spec *stft.Spectrogram) *matrix.FloatMatrix {
	out := matrix.New(spec.Bins, spec.Frames)
	for b := 0; b < spec.Bins; b++ {
		row := out.Row(b)
		for f := 0; f < spec.Frames; f++ {
			re := spec.Real[b*spec.Frames+f]
			im := spec.Imag[b*spec.Frames+f]
			row[f] = float32(math.Sqrt(re*re + im*im))
		}
	}
	return out
}

// rescaleBins linearly interpolates the bin (row) axis of src onto
// targetRows rows, sampling source position target/factor for each target
// row. Positions outside the source range remain zero.
func rescaleBins(src *matrix.FloatMatrix, targetRows int, factor float64) *matrix.FloatMatrix {
	out := matrix.New(targetRows, src.Cols())
	srcRows := src.Rows()
	for t := 0; t < targetRows; t++ {
		pos := float64(t) / factor
		if pos < 0 || pos > float64(srcRows-1) {
			continue
		}
		lo := int(math.Floor(pos))
		hi := lo + 1
		frac := pos - float64(lo)
		dstRow := out.Row(t)
		if hi >= srcRows {
			loRow := src.Row(lo)
			copy(dstRow, loRow)
			continue
		}
		loRow := src.Row(lo)
		hiRow := src.Row(hi)
		for c := range dstRow {
			dstRow[c] = float32((1-frac)*float64(loRow[c]) + frac*float64(hiRow[c]))
		}
	}
	return out
}
