package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/AlexKimmel/termfolio/internal/gateway"
	"github.com/AlexKimmel/termfolio/internal/terminal"
)

type commandRequest struct {
	Input string `json:"input"`
}

func (s *Server) handleWelcome(w http.ResponseWriter, _ *http.Request) {
	gateway.WriteJSON(w, http.StatusOK, s.commands.Welcome())
}

func (s *Server) handleCommands(w http.ResponseWriter, _ *http.Request) {
	gateway.WriteJSON(w, http.StatusOK, map[string][]terminal.Info{"commands": s.commands.Commands()})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gateway.WriteError(w, http.StatusBadRequest, "invalid_json", "request body must be JSON")
		return
	}

	out, ok := s.commands.Execute(req.Input)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	label := out.Command
	if out.Kind == terminal.KindError {
		label = "unknown"
	}
	if s.metrics != nil {
		s.metrics.CommandsTotal.WithLabelValues(label).Inc()
	}
	hlog.FromRequest(r).Debug().Str("command", out.Command).Str("kind", string(out.Kind)).Msg("command executed")

	gateway.WriteJSON(w, http.StatusOK, out)
}
