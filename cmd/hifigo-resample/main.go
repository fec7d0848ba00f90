// Command hifigo-resample is the UTAU-invoked one-shot CLI entry point
// (§6 "CLI bridge"): parse argv the way a resampler executable is called by
// the UTAU engine, render, exit nonzero on failure.
package main

import (
	"fmt"
	"os"

	"github.com/resamplr/hifigo/internal/config"
	"github.com/resamplr/hifigo/internal/render"
	"github.com/resamplr/hifigo/internal/utauargs"
	"github.com/resamplr/hifigo/internal/vocoder"
)

var (
	vocoderInputNames  = []string{"mel", "f0"}
	vocoderOutputNames = []string{"wav"}
	maskInputNames     = []string{"spec"}
	maskOutputNames    = []string{"mask"}
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "hifigo-resample: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	configPath := os.Getenv("HIFIGO_CONFIG")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	params, err := utauargs.Parse(args)
	if err != nil {
		return fmt.Errorf("parsing arguments: %w", err)
	}

	engine := render.Engine{Config: cfg}

	if cfg.VocoderConfig != "" {
		v, err := vocoder.NewONNXVocoder(cfg.VocoderConfig, vocoderInputNames, vocoderOutputNames)
		if err != nil {
			return fmt.Errorf("loading vocoder model: %w", err)
		}
		defer v.Close()
		engine.Vocoder = v
	}
	if cfg.HnSepConfig != "" {
		m, err := vocoder.NewONNXMaskModel(cfg.HnSepConfig, maskInputNames, maskOutputNames)
		if err != nil {
			return fmt.Errorf("loading harmonic/noise separator model: %w", err)
		}
		defer m.Close()
		engine.HnSep = m
	}

	return engine.Render(params, nil)
}
