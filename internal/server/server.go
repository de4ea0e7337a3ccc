// Package server exposes the terminal, the askai gate and the particle
// background over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/AlexKimmel/termfolio/internal/animator"
	"github.com/AlexKimmel/termfolio/internal/gateway"
	"github.com/AlexKimmel/termfolio/internal/obs"
	"github.com/AlexKimmel/termfolio/internal/ratelimit"
	"github.com/AlexKimmel/termfolio/internal/terminal"
)

const (
	// Default bounds for viewport sizes accepted from clients.
	DefaultMaxWidth  = 3840
	DefaultMaxHeight = 2160

	rateLimitedMessage = "Rate limit exceeded. Please wait a moment before trying again."
)

// Asker answers a question under a system prompt.
type Asker interface {
	Complete(ctx context.Context, system, question string) (string, error)
}

type Deps struct {
	Log        zerolog.Logger
	Metrics    *obs.Metrics
	Commands   *terminal.Registry
	Limiter    ratelimit.Limiter
	Chat       Asker
	Background *animator.Background
	Display    *animator.Display
	Version    string

	// IPLimiter, when set, also caps asks per client address so that
	// discarding the session cookie does not reset the budget.
	IPLimiter ratelimit.Limiter

	// Middleware is installed on the router in order, outermost first.
	Middleware []gateway.Middleware

	// TrustForwarded takes client addresses from X-Forwarded-For.
	TrustForwarded bool

	// MaxWidth and MaxHeight bound PUT /api/viewport; zero uses the defaults.
	MaxWidth, MaxHeight int

	// MetricsPath, when set, serves Metrics.Handler.
	MetricsPath string

	// Now defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	log        zerolog.Logger
	metrics    *obs.Metrics
	commands   *terminal.Registry
	limiter    ratelimit.Limiter
	ipLimiter  ratelimit.Limiter
	chat       Asker
	background *animator.Background
	display    *animator.Display
	version    string
	now        func() time.Time

	trustForwarded      bool
	maxWidth, maxHeight int

	router chi.Router
}

func New(d Deps) *Server {
	s := &Server{
		log:        d.Log,
		metrics:    d.Metrics,
		commands:   d.Commands,
		limiter:    d.Limiter,
		ipLimiter:  d.IPLimiter,
		chat:       d.Chat,
		background: d.Background,
		display:    d.Display,
		version:    d.Version,
		now:        d.Now,

		trustForwarded: d.TrustForwarded,
		maxWidth:       d.MaxWidth,
		maxHeight:      d.MaxHeight,
	}
	if s.maxWidth <= 0 {
		s.maxWidth = DefaultMaxWidth
	}
	if s.maxHeight <= 0 {
		s.maxHeight = DefaultMaxHeight
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.version == "" {
		s.version = "dev"
	}

	r := chi.NewRouter()
	for _, mw := range d.Middleware {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(s.version))
	})
	if d.MetricsPath != "" && d.Metrics != nil {
		r.Method(http.MethodGet, d.MetricsPath, d.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/welcome", s.handleWelcome)
		r.Get("/commands", s.handleCommands)
		r.Post("/command", s.handleCommand)
		r.Post("/ask", s.handleAsk)
		r.Put("/viewport", s.handleViewport)
	})
	r.Get("/background.png", s.handleBackgroundPNG)
	r.Get("/background/particles", s.handleParticles)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		gateway.WriteError(w, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		gateway.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
