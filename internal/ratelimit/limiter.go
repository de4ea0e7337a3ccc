package ratelimit

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidPolicy = errors.New("ratelimit: max requests and window must be positive")

type Policy struct {
	MaxRequests int           // admitted requests per window
	Window      time.Duration // length of the trailing window
}

func (p Policy) Validate() error {
	if p.MaxRequests <= 0 || p.Window <= 0 {
		return ErrInvalidPolicy
	}
	return nil
}

type Decision struct {
	Allowed    bool
	Limit      int           // max requests per window
	Remaining  int           // admissions left in the current window (min 0)
	RetryAfter time.Duration // zero when allowed
}

// Limiter is a keyed admission gate. Denial is reported through
// Decision.Allowed; a non-nil error means the backing store failed.
type Limiter interface {
	Allow(ctx context.Context, key string, now time.Time) (Decision, error)
	Close() error
}
