// Package render implements the render orchestrator (C9): the stage that
// ties the mel analyzer, feature cache, harmonic/noise separator, Akima
// pitch curve, external vocoder, and post-effects together into one
// request/response render call.
package render

import (
	"math"
	"strings"

	"github.com/resamplr/hifigo/internal/akima"
	"github.com/resamplr/hifigo/internal/config"
	"github.com/resamplr/hifigo/internal/effects"
	"github.com/resamplr/hifigo/internal/featurecache"
	"github.com/resamplr/hifigo/internal/hnsep"
	"github.com/resamplr/hifigo/internal/matrix"
	"github.com/resamplr/hifigo/internal/mel"
	"github.com/resamplr/hifigo/internal/model"
	"github.com/resamplr/hifigo/internal/renderctx"
	"github.com/resamplr/hifigo/internal/vocoder"
	"github.com/resamplr/hifigo/internal/wavio"
)

// Engine holds the collaborators a render needs beyond the pure-function
// pipeline: configuration and the two opaque inference models.
type Engine struct {
	Config  config.Sampler
	Vocoder vocoder.Vocoder
	HnSep   vocoder.MaskModel
}

// Render runs one full request through the pipeline described in §4.9 and
// writes the resulting WAV, unless OutputPath is "nul" (case-insensitive),
// in which case it stops right after feature extraction.
func (e *Engine) Render(params model.RenderParams, canceller renderctx.Canceller) error {
	flags := params.Flags.Clamp()
	params.Flags = flags

	if err := renderctx.Poll(canceller, "render.feature"); err != nil {
		return err
	}
	mel1, scale, err := e.feature(params, canceller)
	if err != nil {
		return err
	}

	if strings.EqualFold(params.OutputPath, "nul") {
		return nil
	}

	if err := renderctx.Poll(canceller, "render.synthesize"); err != nil {
		return err
	}

	cfg := e.Config
	thopOrigin := float64(cfg.OriginHopSize) / float64(cfg.SampleRate)
	thop := float64(cfg.HopSize) / float64(cfg.SampleRate)

	nFramesOrigin := mel1.Cols()
	tAreaOrigin := make([]float64, nFramesOrigin)
	for i := range tAreaOrigin {
		tAreaOrigin[i] = float64(i)*thopOrigin + thopOrigin/2
	}

	vel := pow2(1 - params.Velocity/100)
	start := params.OffsetMs / 1000
	cutoffSec := params.CutoffMs / 1000
	totalTime := 0.0
	if nFramesOrigin > 0 {
		totalTime = tAreaOrigin[nFramesOrigin-1] + thopOrigin/2
	}
	var end float64
	if params.CutoffMs < 0 {
		end = start - cutoffSec
	} else {
		end = totalTime - cutoffSec
	}
	con := start + params.ConsonantMs/1000
	lengthReq := params.LengthMs / 1000
	stretchLength := end - con

	if cfg.LoopMode || flags.MelLoop {
		mel1, tAreaOrigin, stretchLength = applyLoop(mel1, tAreaOrigin, thopOrigin, con, end, lengthReq)
		nFramesOrigin = mel1.Cols()
		if nFramesOrigin > 0 {
			totalTime = tAreaOrigin[nFramesOrigin-1] + thopOrigin/2
		}
	}

	scalingRatio := 1.0
	if stretchLength < lengthReq && stretchLength > 1e-8 {
		scalingRatio = lengthReq / stretchLength
	}
	stretchedNFrames := int((con*vel+(totalTime-con)*scalingRatio)/thop) + 1
	if stretchedNFrames < 0 {
		stretchedNFrames = 0
	}

	fill := cfg.Fill
	startLeftMelFrames := int((start*vel + thop/2) / thop)
	cutLeftMelFrames := maxInt(0, startLeftMelFrames-fill)
	endRightMelFrames := stretchedNFrames - int((lengthReq+con*vel+thop/2)/thop)
	cutRightMelFrames := maxInt(0, endRightMelFrames-fill)

	keepLo := cutLeftMelFrames
	keepHi := stretchedNFrames - cutRightMelFrames
	if keepHi < keepLo {
		keepHi = keepLo
	}
	if keepHi > stretchedNFrames {
		keepHi = stretchedNFrames
	}

	lastSrcTime := 0.0
	if nFramesOrigin > 0 {
		lastSrcTime = tAreaOrigin[nFramesOrigin-1]
	}

	keptFrames := keepHi - keepLo
	warped := make([]float64, maxInt(0, keptFrames))
	for i := keepLo; i < keepHi; i++ {
		t := float64(i)*thop + thop/2
		var tSrc float64
		if t < vel*con {
			tSrc = t / vel
		} else {
			tSrc = con + (t-vel*con)/scalingRatio
		}
		warped[i-keepLo] = clampFloat(tSrc, 0, lastSrcTime)
	}

	resampledMel := resampleMelOverTime(mel1, tAreaOrigin, warped)

	startSec := start*vel - float64(cutLeftMelFrames)*thop
	tick := params.TickSeconds()
	pitchKnotX := make([]float64, len(params.PitchBendCents))
	pitchKnotY := make([]float64, len(params.PitchBendCents))
	for i, cents := range params.PitchBendCents {
		pitchKnotX[i] = startSec + float64(i)*tick
		pitchKnotY[i] = float64(params.PitchMidi) + cents/100 + float64(flags.T)/100
	}

	f0 := make([]float64, keptFrames)
	if len(pitchKnotX) >= 2 {
		interp, err := akima.New(pitchKnotX, pitchKnotY)
		if err != nil {
			return err
		}
		for k := 0; k < keptFrames; k++ {
			tk := float64(k) * thop
			midi := interp.Eval(tk)
			f0[k] = 440 * pow2((midi-69)/12)
		}
	} else if len(pitchKnotX) == 1 {
		midi := pitchKnotY[0]
		for k := range f0 {
			f0[k] = 440 * pow2((midi-69)/12)
		}
	} else {
		midi := float64(params.PitchMidi) + float64(flags.T)/100
		for k := range f0 {
			f0[k] = 440 * pow2((midi-69)/12)
		}
	}

	if e.Vocoder == nil {
		return renderctx.Wrap(renderctx.KindInternal, nil, "render: no vocoder configured")
	}
	samples, err := e.Vocoder.SpecToWav(resampledMel, f0)
	if err != nil {
		return renderctx.Wrap(renderctx.KindInternal, err, "render: vocoder inference")
	}

	endSec := lengthReq + con*vel - float64(cutLeftMelFrames)*thop
	sr := cfg.SampleRate
	loSamp := maxInt(0, int(startSec*float64(sr)))
	hiSamp := maxInt(loSamp, int(endSec*float64(sr)))
	if hiSamp > len(samples) {
		hiSamp = len(samples)
	}
	if loSamp > hiSamp {
		loSamp = hiSamp
	}
	trimmed := append([]float64(nil), samples[loSamp:hiSamp]...)

	if flags.A != 0 {
		frameTimes := make([]float64, keptFrames)
		midiAtFrame := make([]float64, keptFrames)
		for k := 0; k < keptFrames; k++ {
			frameTimes[k] = float64(k) * thop
			midiAtFrame[k] = 69 + 12*log2(f0[k]/440)
		}
		effects.ApplyAmplitudeFromPitch(trimmed, frameTimes, midiAtFrame, sr, startSec, flags.A)
	}

	if scale > 0 {
		invScale := 1 / scale
		for i := range trimmed {
			trimmed[i] *= float64(invScale)
		}
	}

	effects.ApplyGrowl(trimmed, sr, flags.HG)

	if cfg.WaveNorm {
		effects.ApplyLoudnessNormalize(trimmed, flags.P)
	}

	peakLimit := cfg.PeakLimit
	if peakLimit <= 0 {
		peakLimit = 0.9
	}
	effects.ApplyPeakLimit(trimmed, peakLimit)

	volume := params.VolumePct / 100
	for i := range trimmed {
		trimmed[i] *= volume
	}

	return wavio.WriteMono(params.OutputPath, trimmed, sr)
}

// feature loads a cached mel/scale pair, or computes one and saves it, per
// §4.9 step 2.
func (e *Engine) feature(params model.RenderParams, canceller renderctx.Canceller) (*matrix.FloatMatrix, float32, error) {
	flags := params.Flags
	sig := flags.Signature()
	melPath := featurecache.MelPath(params.InputPath, sig)
	scalePath := featurecache.ScalePath(params.InputPath, sig)

	if !flags.ShouldBypassCache() {
		if cached := featurecache.LoadMel(melPath); cached != nil {
			scale, ok := featurecache.LoadScale(scalePath)
			if ok {
				return cached, scale, nil
			}
		}
	}

	samples, err := wavio.ReadMono(params.InputPath, e.Config.SampleRate)
	if err != nil {
		return nil, 0, err
	}

	if hnsep.Engaged(flags) && e.HnSep != nil {
		hnPath := featurecache.HnSepPath(params.InputPath)
		var separated []float64
		if !flags.ShouldBypassCache() {
			separated = featurecache.LoadHnSep(hnPath, len(samples))
		}
		if separated == nil {
			sep := &hnsep.Separator{Model: e.HnSep}
			separated = sep.SeparateHarmonic(samples)
			_ = featurecache.SaveHnSep(hnPath, separated)
		}
		samples = hnsep.ApplyHnSepFlags(samples, separated, flags)
	}

	peak := computePeak(samples)
	var scale float32 = 1
	if peak >= 0.5 && peak > 0 {
		scale = float32(0.5 / peak)
		for i := range samples {
			samples[i] *= float64(scale)
		}
	}

	cfg := mel.Config{
		NFft:       e.Config.NFft,
		Hop:        e.Config.OriginHopSize,
		WinLen:     e.Config.WinSize,
		SampleRate: e.Config.SampleRate,
		NMels:      e.Config.NumMels,
		FMin:       e.Config.MelFMin,
		FMax:       e.Config.MelFMax,
	}
	keyShift := float64(flags.G) / 100
	melMat, err := mel.Extract(cfg, samples, keyShift, 1, canceller)
	if err != nil {
		return nil, 0, err
	}

	const eps = 1e-8
	for r := 0; r < melMat.Rows(); r++ {
		row := melMat.Row(r)
		for c := range row {
			v := float64(row[c])
			if v < eps {
				v = eps
			}
			row[c] = float32(logNat(v))
		}
	}

	if err := renderctx.Poll(canceller, "render.feature.save"); err != nil {
		return nil, 0, err
	}
	_ = featurecache.SaveMel(melPath, melMat)
	_ = featurecache.SaveScale(scalePath, scale)

	return melMat, scale, nil
}

// applyLoop implements §4.9 step 5: slice the mel matrix to [con, end],
// reflect-pad the loop region's column axis, and reconstruct tAreaOrigin.
func applyLoop(mel1 *matrix.FloatMatrix, tAreaOrigin []float64, thopOrigin, con, end, lengthReq float64) (*matrix.FloatMatrix, []float64, float64) {
	left, right := 0, mel1.Cols()
	for i, t := range tAreaOrigin {
		if t < con {
			left = i + 1
		}
	}
	for i := len(tAreaOrigin) - 1; i >= 0; i-- {
		if tAreaOrigin[i] > end {
			right = i
		} else {
			break
		}
	}
	if left > right {
		left = right
	}

	loopCols := right - left
	if loopCols <= 0 {
		return mel1, tAreaOrigin, end - con
	}

	padLoopSize := int(lengthReq/thopOrigin) + 1
	rows := mel1.Rows()
	out := matrix.New(rows, left+padLoopSize)
	for r := 0; r < rows; r++ {
		srcRow := mel1.Row(r)
		dstRow := out.Row(r)
		copy(dstRow[:left], srcRow[:left])
		for c := 0; c < padLoopSize; c++ {
			srcCol := left + reflectLoopIndex(c, loopCols)
			dstRow[left+c] = srcRow[srcCol]
		}
	}

	newTimes := make([]float64, left+padLoopSize)
	for i := range newTimes {
		newTimes[i] = float64(i)*thopOrigin + thopOrigin/2
	}
	return out, newTimes, float64(padLoopSize) * thopOrigin
}

// reflectLoopIndex reflects c (0-based, counted from the loop start) into
// [0, n) using a period-2n triangle wave.
func reflectLoopIndex(c, n int) int {
	if n <= 1 {
		return 0
	}
	period := 2 * n
	c = c % period
	if c < 0 {
		c += period
	}
	if c < n {
		return c
	}
	return period - 1 - c
}

// resampleMelOverTime linearly interpolates each mel row from
// srcTimes/mel1 onto dstTimes.
func resampleMelOverTime(mel1 *matrix.FloatMatrix, srcTimes, dstTimes []float64) *matrix.FloatMatrix {
	rows := mel1.Rows()
	out := matrix.New(rows, len(dstTimes))
	n := len(srcTimes)
	for k, t := range dstTimes {
		lo, hi, frac := locate(srcTimes, t)
		for r := 0; r < rows; r++ {
			srcRow := mel1.Row(r)
			var v float32
			if n == 0 {
				v = 0
			} else if lo == hi {
				v = srcRow[lo]
			} else {
				v = float32((1-frac)*float64(srcRow[lo]) + frac*float64(srcRow[hi]))
			}
			out.Set(r, k, v)
		}
	}
	return out
}

func locate(xs []float64, t float64) (lo, hi int, frac float64) {
	n := len(xs)
	if n == 0 {
		return 0, 0, 0
	}
	if n == 1 || t <= xs[0] {
		return 0, 0, 0
	}
	if t >= xs[n-1] {
		return n - 1, n - 1, 0
	}
	lo, hi = 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if xs[mid] <= t {
			lo = mid
		} else {
			hi = mid
		}
	}
	dx := xs[hi] - xs[lo]
	if dx == 0 {
		return lo, lo, 0
	}
	return lo, hi, (t - xs[lo]) / dx
}

func computePeak(samples []float64) float64 {
	var peak float64
	for _, s := range samples {
		a := s
		if a < 0 {
			a = -a
		}
		if a > peak {
			peak = a
		}
	}
	return peak
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
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

func pow2(x float64) float64   { return math.Pow(2, x) }
func log2(x float64) float64   { return math.Log2(x) }
func logNat(x float64) float64 { return math.Log(x) }
