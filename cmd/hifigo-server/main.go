// Command hifigo-server runs the local HTTP resample dispatcher (§6
// "Resample RPC"): load config, start serving GET/POST / on the configured
// port right away, and load the inference models in the background; GET /
// reports 503 until the models have loaded.
package main

import (
	"fmt"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/resamplr/hifigo/internal/config"
	"github.com/resamplr/hifigo/internal/httpapi"
	"github.com/resamplr/hifigo/internal/pool"
	"github.com/resamplr/hifigo/internal/render"
	"github.com/resamplr/hifigo/internal/vocoder"
)

var (
	vocoderInputNames  = []string{"mel", "f0"}
	vocoderOutputNames = []string{"wav"}
	maskInputNames     = []string{"spec"}
	maskOutputNames    = []string{"mask"}
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "hifigo-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("HIFIGO_CONFIG")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	engine := &render.Engine{Config: cfg}
	var ready atomic.Bool

	server := &httpapi.Server{
		Engine: engine,
		Pool:   pool.New(cfg.MaxWorkers),
		Ready:  ready.Load,
	}

	go func() {
		if cfg.VocoderConfig != "" {
			v, err := vocoder.NewONNXVocoder(cfg.VocoderConfig, vocoderInputNames, vocoderOutputNames)
			if err != nil {
				fmt.Fprintf(os.Stderr, "hifigo-server: loading vocoder model: %v\n", err)
				return
			}
			engine.Vocoder = v
		}
		if cfg.HnSepConfig != "" {
			m, err := vocoder.NewONNXMaskModel(cfg.HnSepConfig, maskInputNames, maskOutputNames)
			if err != nil {
				fmt.Fprintf(os.Stderr, "hifigo-server: loading harmonic/noise separator model: %v\n", err)
				return
			}
			engine.HnSep = m
		}
		ready.Store(true)
		fmt.Printf("hifigo-server: models loaded, ready on port %d\n", cfg.Port)
	}()

	addr := fmt.Sprintf(":%d", cfg.Port)
	fmt.Printf("hifigo-server: listening on %s (initializing models...)\n", addr)
	return http.ListenAndServe(addr, server.Router())
}
