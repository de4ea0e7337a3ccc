// Package redis stores sliding logs in Redis sorted sets so several
// termfolio instances can share one ask budget per session.
package redis

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/xid"

	"github.com/AlexKimmel/termfolio/internal/ratelimit"
)

// slidingLog evicts members scored at or before now-window, then admits
// only if the remaining cardinality is below the limit. Returns
// {allowed, count, oldest score}.
var slidingLog = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  local score = now
  if oldest[2] then score = tonumber(oldest[2]) end
  return {0, count, score}
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return {1, count + 1, 0}
`)

type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type Limiter struct {
	client *redis.Client
	policy ratelimit.Policy
	prefix string
}

var _ ratelimit.Limiter = (*Limiter)(nil)

func New(cfg Config, p ratelimit.Policy) (*Limiter, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "termfolio:ratelimit:"
	}
	return &Limiter{client: client, policy: p, prefix: prefix}, nil
}

func (l *Limiter) Close() error {
	return l.client.Close()
}

func (l *Limiter) Allow(ctx context.Context, key string, now time.Time) (ratelimit.Decision, error) {
	nowMS := now.UnixMilli()
	windowMS := l.policy.Window.Milliseconds()

	res, err := slidingLog.Run(ctx, l.client, []string{l.prefix + key},
		nowMS, windowMS, l.policy.MaxRequests, xid.New().String(),
	).Int64Slice()
	if err != nil {
		return ratelimit.Decision{}, fmt.Errorf("sliding log script: %w", err)
	}
	if len(res) != 3 {
		return ratelimit.Decision{}, fmt.Errorf("sliding log script: unexpected reply %v", res)
	}

	if res[0] == 0 {
		wait := time.Duration(res[2]+windowMS-nowMS) * time.Millisecond
		return ratelimit.Decision{
			Allowed:    false,
			Limit:      l.policy.MaxRequests,
			RetryAfter: max(wait, 0),
		}, nil
	}
	return ratelimit.Decision{
		Allowed:   true,
		Limit:     l.policy.MaxRequests,
		Remaining: max(l.policy.MaxRequests-int(res[1]), 0),
	}, nil
}
