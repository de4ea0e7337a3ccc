// Package session gives each visitor a stable, anonymous id carried in a
// cookie. The id scopes per-visitor state such as the askai rate limit.
package session

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/xid"
)

const CookieName = "termfolio_session"

type ctxKey int

const keyID ctxKey = 0

type entry struct {
	id     string
	issued bool
}

// WithID injects the session id of a returning visitor into context.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyID, entry{id: id})
}

func withIssuedID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyID, entry{id: id, issued: true})
}

// FromContext extracts the session id from context (if present).
func FromContext(ctx context.Context) (string, bool) {
	e, ok := ctx.Value(keyID).(entry)
	return e.id, ok && e.id != ""
}

// Issued reports whether the session was created by this request, i.e.
// the client did not present a cookie. Such ids carry no history.
func Issued(ctx context.Context) bool {
	e, _ := ctx.Value(keyID).(entry)
	return e.issued
}

// Middleware reuses a valid session cookie or issues a new one, and stores
// the id in the request context. It skips any path in skipPaths.
func Middleware(ttl time.Duration, skipPaths map[string]struct{}) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skipPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			if c, err := r.Cookie(CookieName); err == nil {
				if parsed, err := xid.FromString(c.Value); err == nil {
					next.ServeHTTP(w, r.WithContext(WithID(r.Context(), parsed.String())))
					return
				}
			}

			id := xid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   int(ttl.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			next.ServeHTTP(w, r.WithContext(withIssuedID(r.Context(), id)))
		})
	}
}
