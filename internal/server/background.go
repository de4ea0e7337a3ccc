package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/hlog"

	"github.com/AlexKimmel/termfolio/internal/gateway"
	"github.com/AlexKimmel/termfolio/internal/particles"
)

type viewportRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type particleView struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Size  float64 `json:"size"`
	Color string  `json:"color"`
}

type particlesResponse struct {
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	Frames    uint64         `json:"frames"`
	Particles []particleView `json:"particles"`
}

type pngEncoder interface {
	EncodePNG(w io.Writer) error
}

var errNoEncoder = errors.New("surface cannot encode PNG")

// handleViewport is the resize notification: the client reports its window
// size and the background repopulates for it. There is one background per
// process, so the last reported size wins for every visitor. Sizes above
// the configured maximum are rejected.
func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	var req viewportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gateway.WriteError(w, http.StatusBadRequest, "invalid_json", "request body must be JSON")
		return
	}
	if req.Width < 0 || req.Height < 0 || req.Width > s.maxWidth || req.Height > s.maxHeight {
		gateway.WriteError(w, http.StatusBadRequest, "invalid_viewport",
			fmt.Sprintf("width must be between 0 and %d and height between 0 and %d", s.maxWidth, s.maxHeight))
		return
	}

	s.display.Resize(req.Width, req.Height)
	hlog.FromRequest(r).Debug().Int("width", req.Width).Int("height", req.Height).Msg("viewport resized")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBackgroundPNG(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := s.background.Render(func(surface particles.Surface) error {
		enc, ok := surface.(pngEncoder)
		if !ok {
			return errNoEncoder
		}
		return enc.EncodePNG(&buf)
	})
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("render background")
		gateway.WriteError(w, http.StatusServiceUnavailable, "background_unavailable", "background is not available")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleParticles(w http.ResponseWriter, _ *http.Request) {
	ps := s.background.Particles()
	width, height := s.display.Size()

	resp := particlesResponse{
		Width:     width,
		Height:    height,
		Frames:    s.background.Frames(),
		Particles: make([]particleView, 0, len(ps)),
	}
	for _, p := range ps {
		resp.Particles = append(resp.Particles, particleView{
			X:     p.X,
			Y:     p.Y,
			Size:  p.Size,
			Color: cssColor(p.Color.R, p.Color.G, p.Color.B, p.Color.A),
		})
	}
	gateway.WriteJSON(w, http.StatusOK, resp)
}

// cssColor formats an NRGBA color as rgba(r, g, b, a) with alpha in [0, 1].
func cssColor(r, g, b, a uint8) string {
	alpha := math.Round(float64(a)/255*100) / 100
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, strconv.FormatFloat(alpha, 'f', -1, 64))
}
