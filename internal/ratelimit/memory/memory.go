package memory

import (
	"context"
	"sync"
	"time"

	"github.com/AlexKimmel/termfolio/internal/ratelimit"
)

// Limiter keeps one sliding log per key in process memory. State is lost
// on restart.
type Limiter struct {
	policy ratelimit.Policy
	logs   sync.Map // key -> *ratelimit.SlidingLog
}

func New(p ratelimit.Policy) (*Limiter, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Limiter{policy: p}, nil
}

func (l *Limiter) Close() error { return nil }

func (l *Limiter) Allow(_ context.Context, key string, now time.Time) (ratelimit.Decision, error) {
	v, _ := l.logs.LoadOrStore(key, ratelimit.NewSlidingLog(l.policy.MaxRequests, l.policy.Window))
	return v.(*ratelimit.SlidingLog).AllowAt(now), nil
}

// Prune drops keys whose window has fully drained and returns how many
// were removed.
func (l *Limiter) Prune(now time.Time) int {
	removed := 0
	l.logs.Range(func(k, v any) bool {
		if v.(*ratelimit.SlidingLog).Len(now) == 0 {
			l.logs.CompareAndDelete(k, v)
			removed++
		}
		return true
	})
	return removed
}
