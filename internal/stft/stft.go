// Package stft implements the windowed short-time Fourier transform pair
// (C2): forward framing over an arbitrary-length FFT core, and the
// overlap-add inverse. Mirrors the teacher's process-wide, build-once
// caches (see internal/stft's window cache and internal/fft's plan cache).
package stft

import (
	"runtime"
	"sync"

	"github.com/resamplr/hifigo/internal/fft"
	"github.com/resamplr/hifigo/internal/renderctx"
)

const parallelFrameThreshold = 32

// Spectrogram is a one-sided complex spectrogram: bins = nFft/2+1 rows,
// frames columns, row-major (real[b*frames+f], imag[b*frames+f]).
type Spectrogram struct {
	Real   []float64
	Imag   []float64
	Bins   int
	Frames int
	NFft   int
	Hop    int
	WinLen int
}

// Forward computes the STFT of signal with the given parameters. If center
// is true the signal is reflect-padded by nFft/2 on each side before
// framing.
func Forward(signal []float64, nFft, hop, winLen int, window []float64, center bool, canceller renderctx.Canceller) (*Spectrogram, error) {
	if nFft < 1 {
		return nil, renderctx.Invalid("stft: invalid nFft %d", nFft)
	}
	if winLen > nFft {
		return nil, renderctx.Invalid("stft: winLen %d exceeds nFft %d", winLen, nFft)
	}
	if len(window) < winLen {
		return nil, renderctx.Invalid("stft: window buffer length %d smaller than winLen %d", len(window), winLen)
	}

	padded := signal
	if center {
		padded = reflectPad(signal, nFft/2, nFft/2)
	}

	effHop := hop
	if effHop < 1 {
		effHop = 1
	}

	frames := 1
	if len(padded) >= nFft {
		frames = 1 + (len(padded)-nFft)/effHop
	}

	bins := nFft/2 + 1
	spec := &Spectrogram{
		Real:   make([]float64, bins*frames),
		Imag:   make([]float64, bins*frames),
		Bins:   bins,
		Frames: frames,
		NFft:   nFft,
		Hop:    effHop,
		WinLen: winLen,
	}

	plan, err := fft.Get(nFft)
	if err != nil {
		return nil, renderctx.Wrap(renderctx.KindInvalidArgument, err, "stft: building FFT plan for nFft=%d", nFft)
	}

	scratchPool := sync.Pool{New: func() any {
		return &frameScratch{re: make([]float64, nFft), im: make([]float64, nFft)}
	}}

	processFrame := func(f int) {
		s := scratchPool.Get().(*frameScratch)
		defer scratchPool.Put(s)
		re, im := s.re, s.im
		for i := range re {
			re[i] = 0
			im[i] = 0
		}
		start := f * effHop
		for i := 0; i < winLen; i++ {
			re[i] = padded[start+i] * window[i]
		}
		plan.Transform(re, im, false)
		for b := 0; b < bins; b++ {
			spec.Real[b*frames+f] = re[b]
			spec.Imag[b*frames+f] = im[b]
		}
	}

	if frames >= parallelFrameThreshold && runtime.GOMAXPROCS(0) > 1 {
		var wg sync.WaitGroup
		workers := runtime.GOMAXPROCS(0)
		chunk := (frames + workers - 1) / workers
		for w := 0; w < workers; w++ {
			lo := w * chunk
			hi := lo + chunk
			if hi > frames {
				hi = frames
			}
			if lo >= hi {
				continue
			}
			wg.Add(1)
			go func(lo, hi int) {
				defer wg.Done()
				for f := lo; f < hi; f++ {
					processFrame(f)
				}
			}(lo, hi)
		}
		wg.Wait()
	} else {
		for f := 0; f < frames; f++ {
			if err := renderctx.Poll(canceller, "stft.forward"); err != nil {
				return nil, err
			}
			processFrame(f)
		}
	}

	return spec, nil
}

type frameScratch struct {
	re, im []float64
}

// Inverse reconstructs a real signal from a one-sided spectrogram via
// overlap-add, normalizing by the window-sum-square and trimming/padding to
// expectedLength (0 disables the final resize).
func Inverse(spec *Spectrogram, window []float64, center bool, expectedLength int, canceller renderctx.Canceller) ([]float64, error) {
	nFft, hop, winLen := spec.NFft, spec.Hop, spec.WinLen
	bins, frames := spec.Bins, spec.Frames
	if len(window) < winLen {
		return nil, renderctx.Invalid("stft: window buffer length %d smaller than winLen %d", len(window), winLen)
	}
	if len(spec.Real) != bins*frames || len(spec.Imag) != bins*frames {
		return nil, renderctx.Invalid("stft: spectrogram buffer length mismatch with bins=%d frames=%d", bins, frames)
	}

	plan, err := fft.Get(nFft)
	if err != nil {
		return nil, renderctx.Wrap(renderctx.KindInvalidArgument, err, "stft: building FFT plan for nFft=%d", nFft)
	}

	outLen := (frames-1)*hop + nFft
	if frames == 0 {
		outLen = 0
	}
	output := make([]float64, outLen)
	winSumSq := make([]float64, outLen)

	re := make([]float64, nFft)
	im := make([]float64, nFft)

	for f := 0; f < frames; f++ {
		if err := renderctx.Poll(canceller, "stft.inverse"); err != nil {
			return nil, err
		}
		for b := 0; b < bins; b++ {
			re[b] = spec.Real[b*frames+f]
			im[b] = spec.Imag[b*frames+f]
		}
		for k := bins; k < nFft; k++ {
			mirror := nFft - k
			re[k] = re[mirror]
			im[k] = -im[mirror]
		}
		plan.Transform(re, im, true)

		start := f * hop
		for i := 0; i < winLen; i++ {
			output[start+i] += re[i] * window[i]
			winSumSq[start+i] += window[i] * window[i]
		}
	}

	for j := range output {
		if winSumSq[j] > 1e-8 {
			output[j] /= winSumSq[j]
		}
	}

	if center {
		trim := nFft / 2
		if trim > len(output) {
			trim = len(output)
		}
		end := len(output) - trim
		if end < trim {
			end = trim
		}
		if trim <= end {
			output = output[trim:end]
		} else {
			output = nil
		}
	}

	if expectedLength > 0 {
		if len(output) > expectedLength {
			output = output[:expectedLength]
		} else if len(output) < expectedLength {
			grown := make([]float64, expectedLength)
			copy(grown, output)
			output = grown
		}
	}

	return output, nil
}
