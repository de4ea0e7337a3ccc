// Package gateway holds the HTTP middleware shared by every route.
package gateway

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/AlexKimmel/termfolio/internal/ratelimit"
)

type Middleware func(http.Handler) http.Handler

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// WriteError writes {"error":{"code":...,"message":...}} with the given status.
func WriteError(w http.ResponseWriter, status int, code, msg string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = msg
	WriteJSON(w, status, body)
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// SetRateLimitHeaders reports the limiter decision to the client.
func SetRateLimitHeaders(w http.ResponseWriter, dec ratelimit.Decision) {
	if dec.Limit <= 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(dec.Remaining, 0)))
	if !dec.Allowed {
		secs := int(math.Ceil(dec.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
	}
}
