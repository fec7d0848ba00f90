// Package httpapi implements the local HTTP dispatcher (§6 "Resample
// RPC"): a readiness probe on GET / and a render RPC on POST /, serializing
// requests onto the render worker pool.
package httpapi

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/resamplr/hifigo/internal/model"
	"github.com/resamplr/hifigo/internal/pool"
	"github.com/resamplr/hifigo/internal/render"
	"github.com/resamplr/hifigo/internal/renderctx"
)

// FlagsJSON mirrors §6's camelCase flag fields over the wire.
type FlagsJSON struct {
	G          int  `json:"g"`
	Hb         int  `json:"Hb"`
	Hv         int  `json:"Hv"`
	HG         int  `json:"HG"`
	P          int  `json:"P"`
	T          int  `json:"t"`
	Ht         int  `json:"Ht"`
	A          int  `json:"A"`
	ForceRegen bool `json:"G"`
	He         bool `json:"He"`
}

// RenderRequest is the POST / request body (§6).
type RenderRequest struct {
	InputFile      string    `json:"inputFile" binding:"required"`
	OutputFile     string    `json:"outputFile" binding:"required"`
	PitchMidi      int       `json:"pitchMidi"`
	Velocity       float64   `json:"velocity"`
	Flags          FlagsJSON `json:"flags"`
	Offset         float64   `json:"offset"`
	Length         int       `json:"length"`
	Consonant      float64   `json:"consonant"`
	Cutoff         float64   `json:"cutoff"`
	Volume         float64   `json:"volume"`
	Modulation     float64   `json:"modulation"`
	Tempo          float64   `json:"tempo"`
	PitchBendCents []float64 `json:"pitchBendCents"`
}

func (r RenderRequest) toParams() model.RenderParams {
	return model.RenderParams{
		InputPath:  r.InputFile,
		OutputPath: r.OutputFile,
		PitchMidi:  r.PitchMidi,
		Velocity:   r.Velocity,
		Flags: model.Flags{
			G:          r.Flags.G,
			Hb:         r.Flags.Hb,
			Hv:         r.Flags.Hv,
			HG:         r.Flags.HG,
			P:          r.Flags.P,
			T:          r.Flags.T,
			Ht:         r.Flags.Ht,
			A:          r.Flags.A,
			ForceRegen: r.Flags.ForceRegen,
			MelLoop:    r.Flags.He,
		}.Clamp(),
		OffsetMs:       r.Offset,
		LengthMs:       float64(r.Length),
		ConsonantMs:    r.Consonant,
		CutoffMs:       r.Cutoff,
		VolumePct:      r.Volume,
		Modulation:     r.Modulation,
		TempoBpm:       r.Tempo,
		PitchBendCents: r.PitchBendCents,
	}
}

// Server wires the render engine and worker pool to gin routes.
type Server struct {
	Engine *render.Engine
	Pool   *pool.WorkerPool
	Ready  func() bool
}

// Router builds the gin engine with the two §6 routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(requestTracking(), gin.Recovery())
	r.GET("/", s.handleStatus)
	r.POST("/", s.handleRender)
	return r
}

// requestTracking tags every request with a UUID (surfaced in the
// X-Request-Id response header and in the per-request log line), the way
// magda-api's RequestTracking middleware does.
func requestTracking() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()
		c.Set("request_id", requestID)
		c.Header("X-Request-Id", requestID)

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		fmt.Printf("hifigo: request_id=%s method=%s path=%s status=%d duration=%s\n",
			requestID, c.Request.Method, c.Request.URL.Path, c.Writer.Status(), duration)
	}
}

func (s *Server) handleStatus(c *gin.Context) {
	if s.Ready != nil && !s.Ready() {
		c.String(http.StatusServiceUnavailable, "Server Initializing")
		return
	}
	c.String(http.StatusOK, "Server Ready")
}

func (s *Server) handleRender(c *gin.Context) {
	var req RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "invalid request body: %v", err)
		return
	}

	params := req.toParams()
	err := s.Pool.Run(c.Request.Context(), func(canceller renderctx.Canceller) error {
		return s.Engine.Render(params, canceller)
	})

	if err != nil {
		status := renderctx.StatusCode(err)
		msg := err.Error()
		if re, ok := err.(*renderctx.Error); ok && re.Traceback != "" {
			c.String(status, "%s\n%s", msg, re.Traceback)
			return
		}
		c.String(status, "%s", msg)
		return
	}

	c.String(http.StatusOK, "Success: '%s' -> '%s'", stem(params.InputPath), params.OutputPath)
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
