package ratelimit

import (
	"sync"
	"time"
)

// SlidingLog admits at most MaxRequests within any trailing Window.
// It keeps the timestamps of admitted requests and evicts expired ones
// lazily on each check, so it never holds more than MaxRequests entries.
type SlidingLog struct {
	mu         sync.Mutex
	policy     Policy
	timestamps []time.Time
	now        func() time.Time
}

func NewSlidingLog(maxRequests int, window time.Duration) *SlidingLog {
	return &SlidingLog{
		policy:     Policy{MaxRequests: maxRequests, Window: window},
		timestamps: make([]time.Time, 0, max(maxRequests, 0)),
		now:        time.Now,
	}
}

// CanMakeRequest records and admits the call if the window has budget left.
// Denied calls are not recorded.
func (l *SlidingLog) CanMakeRequest() bool {
	return l.AllowAt(l.now()).Allowed
}

func (l *SlidingLog) AllowAt(now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.evict(now)

	if len(l.timestamps) >= l.policy.MaxRequests {
		var wait time.Duration
		if len(l.timestamps) > 0 {
			wait = l.timestamps[0].Add(l.policy.Window).Sub(now)
		}
		return Decision{
			Allowed:    false,
			Limit:      l.policy.MaxRequests,
			Remaining:  0,
			RetryAfter: max(wait, 0),
		}
	}

	l.timestamps = append(l.timestamps, now)
	return Decision{
		Allowed:   true,
		Limit:     l.policy.MaxRequests,
		Remaining: l.policy.MaxRequests - len(l.timestamps),
	}
}

// Len reports how many admissions are still inside the window at now.
func (l *SlidingLog) Len(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evict(now)
	return len(l.timestamps)
}

// evict keeps only timestamps with now - t < window. Caller holds mu.
func (l *SlidingLog) evict(now time.Time) {
	kept := 0
	for _, t := range l.timestamps {
		if now.Sub(t) < l.policy.Window {
			l.timestamps[kept] = t
			kept++
		}
	}
	clear(l.timestamps[kept:])
	l.timestamps = l.timestamps[:kept]
}
