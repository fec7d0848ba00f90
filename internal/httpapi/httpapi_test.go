package httpapi

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/resamplr/hifigo/internal/config"
	"github.com/resamplr/hifigo/internal/matrix"
	"github.com/resamplr/hifigo/internal/pool"
	"github.com/resamplr/hifigo/internal/render"
	"github.com/resamplr/hifigo/internal/wavio"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type constVocoder struct {
	amplitude float64
	sr        int
}

func (v constVocoder) SpecToWav(mel *matrix.FloatMatrix, f0 []float64) ([]float64, error) {
	n := mel.Cols()*256 + 16384
	out := make([]float64, n)
	for i := range out {
		out[i] = v.amplitude * math.Sin(2*math.Pi*300*float64(i)/float64(v.sr))
	}
	return out, nil
}

func testConfig() config.Sampler {
	return config.Sampler{
		SampleRate:    8000,
		OriginHopSize: 32,
		HopSize:       64,
		NFft:          256,
		WinSize:       256,
		NumMels:       8,
		MelFMin:       40,
		MelFMax:       4000,
		Fill:          2,
		PeakLimit:     0.9,
		WaveNorm:      true,
		MaxWorkers:    1,
	}
}

func writeFixture(t *testing.T, path string) {
	t.Helper()
	n := 8000
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.2 * math.Sin(2*math.Pi*220*float64(i)/8000)
	}
	if err := wavio.WriteMono(path, samples, 8000); err != nil {
		t.Fatalf("writing fixture wav: %v", err)
	}
}

func newTestServer(ready func() bool) *Server {
	cfg := testConfig()
	engine := &render.Engine{Config: cfg, Vocoder: constVocoder{amplitude: 0.3, sr: cfg.SampleRate}}
	return &Server{Engine: engine, Pool: pool.New(1), Ready: ready}
}

func TestHandleStatusReadyByDefault(t *testing.T) {
	s := newTestServer(nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "Server Ready" {
		t.Fatalf("unexpected body: %q", w.Body.String())
	}
}

func TestHandleStatusInitializing(t *testing.T) {
	s := newTestServer(func() bool { return false })
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if w.Body.String() != "Server Initializing" {
		t.Fatalf("unexpected body: %q", w.Body.String())
	}
}

func TestHandleRenderSuccess(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "src.wav")
	out := filepath.Join(dir, "out.wav")
	writeFixture(t, in)

	s := newTestServer(nil)
	body := RenderRequest{
		InputFile:  in,
		OutputFile: out,
		PitchMidi:  69,
		Velocity:   100,
		Flags:      FlagsJSON{Hb: 100, Hv: 100},
		Length:     500,
		Volume:     100,
		Tempo:      120,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	want := "Success: 'src' -> '" + out + "'"
	if w.Body.String() != want {
		t.Fatalf("got %q, want %q", w.Body.String(), want)
	}
}

func TestHandleRenderInvalidBody(t *testing.T) {
	s := newTestServer(nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandleRenderMissingInputFails(t *testing.T) {
	dir := t.TempDir()
	s := newTestServer(nil)
	body := RenderRequest{
		InputFile:  filepath.Join(dir, "missing.wav"),
		OutputFile: filepath.Join(dir, "out.wav"),
		PitchMidi:  69,
		Velocity:   100,
		Flags:      FlagsJSON{Hb: 100, Hv: 100},
		Length:     500,
		Volume:     100,
		Tempo:      120,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	s.Router().ServeHTTP(w, req)

	if w.Code == http.StatusOK {
		t.Fatalf("expected failure status for missing input file, got 200")
	}
}

func TestStemTrimsDirectoryAndExtension(t *testing.T) {
	if got := stem("/a/b/src.wav"); got != "src" {
		t.Fatalf("stem: got %q, want %q", got, "src")
	}
}
