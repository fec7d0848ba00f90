// Package config loads the Sampler section of the server's INI config file
// (§6), merging over documented defaults the way the teacher's preset
// package merges a loaded JSON preset onto its defaults.
package config

import (
	"github.com/gookit/ini/v2"

	"github.com/resamplr/hifigo/internal/renderctx"
)

// Sampler holds every knob §6 documents under the [Sampler] section.
type Sampler struct {
	Port       int    `ini:"Port"`
	CachePath  string `ini:"CachePath"`
	MaxWorkers int    `ini:"MaxWorkers"`
	SampleRate int    `ini:"SampleRate"`

	HopSize       int `ini:"HopSize"`
	OriginHopSize int `ini:"OriginHopSize"`
	NFft          int `ini:"NFft"`
	WinSize       int `ini:"WinSize"`

	NumMels int     `ini:"NumMels"`
	MelFMin float64 `ini:"MelFMin"`
	MelFMax float64 `ini:"MelFMax"`

	Fill      int     `ini:"Fill"`
	PeakLimit float64 `ini:"PeakLimit"`
	WaveNorm  bool    `ini:"WaveNorm"`
	LoopMode  bool    `ini:"LoopMode"`

	VocoderConfig string `ini:"VocoderConfig"`
	HnSepConfig   string `ini:"HnSepConfig"`
}

// Default returns the documented defaults (§6 "Config").
func Default() Sampler {
	return Sampler{
		Port:          8572,
		MaxWorkers:    2,
		SampleRate:    44100,
		HopSize:       512,
		OriginHopSize: 128,
		NFft:          2048,
		WinSize:       2048,
		NumMels:       128,
		MelFMin:       40,
		MelFMax:       16000,
		Fill:          8,
		PeakLimit:     0.9,
		WaveNorm:      true,
		LoopMode:      false,
	}
}

// Load reads path (an INI file) and merges its Sampler section onto the
// documented defaults, mirroring the teacher's "merge onto defaults" preset
// convention rather than requiring every key to be present. An empty path
// is not an error — Default() is returned unchanged; a path that names a
// file that cannot be loaded is an error.
func Load(path string) (Sampler, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	i := ini.New()
	if err := i.LoadFiles(path); err != nil {
		return cfg, renderctx.Wrap(renderctx.KindInternal, err, "config: loading %q", path)
	}
	if err := i.MapStruct("Sampler", &cfg); err != nil {
		return cfg, renderctx.Wrap(renderctx.KindInternal, err, "config: mapping Sampler section of %q", path)
	}
	return cfg, nil
}
