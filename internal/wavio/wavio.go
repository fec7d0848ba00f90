// Package wavio reads and writes mono PCM WAV files, grounded on the
// teacher's internal/fitcommon wav helpers: cwbudde/wav for the container,
// go-audio/audio for the PCM buffer, algo-dsp/dsp/resample when the source
// rate doesn't match the configured rate.
package wavio

import (
	"os"
	"path/filepath"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"

	"github.com/resamplr/hifigo/internal/renderctx"
)

// ReadMono reads a (possibly multi-channel) WAV file, down-mixing to mono
// by averaging channels, and resamples to targetRate when it differs from
// the file's own sample rate.
func ReadMono(path string, targetRate int) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, renderctx.NotFound("wavio: input file %q not found", path)
		}
		return nil, renderctx.Wrap(renderctx.KindInternal, err, "wavio: opening %q", path)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, renderctx.Invalid("wavio: %q is not a valid WAV file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, renderctx.Wrap(renderctx.KindInternal, err, "wavio: decoding %q", path)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, renderctx.Invalid("wavio: %q has no usable PCM data", path)
	}

	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < ch; c++ {
			sum += float64(buf.Data[i*ch+c])
		}
		mono[i] = sum / float64(ch)
	}

	if targetRate > 0 && buf.Format.SampleRate != targetRate {
		r, err := dspresample.NewForRates(float64(buf.Format.SampleRate), float64(targetRate), dspresample.WithQuality(dspresample.QualityBest))
		if err != nil {
			return nil, renderctx.Wrap(renderctx.KindInternal, err, "wavio: building resampler %d->%d", buf.Format.SampleRate, targetRate)
		}
		mono = r.Process(mono)
	}
	return mono, nil
}

// WriteMono writes samples (in [-1, 1]) as 16-bit PCM mono WAV, clipping
// to the int16 range.
func WriteMono(path string, samples []float64, sampleRate int) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return renderctx.Wrap(renderctx.KindInternal, err, "wavio: creating directory for %q", path)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return renderctx.Wrap(renderctx.KindInternal, err, "wavio: creating %q", path)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	defer enc.Close()

	ints := make([]int, len(samples))
	for i, s := range samples {
		ints[i] = clipToInt16(s)
	}
	pcm := &audio.IntBuffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: 1,
		},
		Data:           ints,
		SourceBitDepth: 16,
	}
	if err := enc.Write(pcm); err != nil {
		return renderctx.Wrap(renderctx.KindInternal, err, "wavio: writing %q", path)
	}
	return nil
}

func clipToInt16(s float64) int {
	v := s * 32768.0
	if v > 32767 {
		v = 32767
	}
	if v < -32768 {
		v = -32768
	}
	return int(v)
}
