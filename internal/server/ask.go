package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"

	"github.com/AlexKimmel/termfolio/internal/chat"
	"github.com/AlexKimmel/termfolio/internal/gateway"
	"github.com/AlexKimmel/termfolio/internal/ratelimit"
	"github.com/AlexKimmel/termfolio/internal/session"
)

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Response string `json:"response"`
}

// handleAsk gates the question through the sliding-log limiters and, if
// admitted, forwards it to the chat API once. A denial is final for this
// request; the client has to ask again.
//
// Returning visitors are limited per session. Requests without a session
// cookie are limited by client address, so dropping the cookie does not
// buy a fresh budget. When an IP limiter is configured it applies on top,
// across every session from the same address.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gateway.WriteError(w, http.StatusBadRequest, "invalid_json", "request body must be JSON")
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		gateway.WriteError(w, http.StatusBadRequest, "empty_question", "Please enter a question.")
		return
	}

	ip := gateway.ClientIP(r, s.trustForwarded)
	key, ok := session.FromContext(r.Context())
	if !ok || session.Issued(r.Context()) {
		key = "anon:" + ip
	}

	now := s.now()
	dec, err := s.limiter.Allow(r.Context(), "ask:"+key, now)
	if err == nil && dec.Allowed && s.ipLimiter != nil {
		var ipDec ratelimit.Decision
		ipDec, err = s.ipLimiter.Allow(r.Context(), "ask:ip:"+ip, now)
		if err == nil && (!ipDec.Allowed || ipDec.Remaining < dec.Remaining) {
			dec = ipDec
		}
	}
	if err != nil {
		log.Error().Err(err).Str("session", key).Msg("ask limiter failed")
		if s.metrics != nil {
			s.metrics.LimiterErrors.Inc()
		}
		gateway.WriteError(w, http.StatusInternalServerError, "rate_limiter_error", "internal rate limiter error")
		return
	}
	gateway.SetRateLimitHeaders(w, dec)

	if !dec.Allowed {
		log.Info().Str("session", key).Str("ip", ip).Dur("retry_after", dec.RetryAfter).Msg("ask rate limited")
		s.countAsk("rate_limited")
		gateway.WriteError(w, http.StatusTooManyRequests, "rate_limited", rateLimitedMessage)
		return
	}

	answer, err := s.chat.Complete(r.Context(), s.commands.SystemPrompt(), question)
	if err != nil {
		status, code, msg, kind := classifyChatError(err)
		log.Warn().Err(err).Str("session", key).Str("kind", kind).Msg("chat completion failed")
		s.countAsk("failed")
		if s.metrics != nil {
			s.metrics.ChatErrors.WithLabelValues(kind).Inc()
		}
		gateway.WriteError(w, status, code, msg)
		return
	}

	s.countAsk("answered")
	gateway.WriteJSON(w, http.StatusOK, askResponse{Response: answer})
}

func (s *Server) countAsk(outcome string) {
	if s.metrics != nil {
		s.metrics.AskTotal.WithLabelValues(outcome).Inc()
	}
}

// classifyChatError maps a chat failure to the status, error code and
// user-facing message, plus a metric label.
func classifyChatError(err error) (status int, code, msg, kind string) {
	var apiErr *chat.APIError
	switch {
	case errors.Is(err, chat.ErrMissingAPIKey):
		return http.StatusServiceUnavailable, "ai_unavailable", "The AI service is not configured.", "config"
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, "upstream_error", apiErr.Error(), "upstream"
	case errors.Is(err, chat.ErrInvalidResponse):
		return http.StatusBadGateway, "invalid_response", "Invalid response format from AI service", "payload"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "upstream_timeout", "The AI service took too long to answer. Please try again later.", "timeout"
	default:
		return http.StatusBadGateway, "upstream_unreachable", "Error connecting to AI service. Please try again later.", "network"
	}
}
