package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// luaSlidingWindow drops entries older than the window, counts the rest and
// admits the request only while the count is below the limit.
// KEYS[1]=key ARGV[1]=now_ms ARGV[2]=window_start_ms ARGV[3]=window_ms
// ARGV[4]=member ARGV[5]=limit. Returns the new count, or -1 when limited.
var luaSlidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local windowStart = tonumber(ARGV[2])
local windowMs = tonumber(ARGV[3])
local member = ARGV[4]
local limit = tonumber(ARGV[5])

redis.call('ZREMRANGEBYSCORE', key, '-inf', windowStart)
local count = redis.call('ZCARD', key)
if count < limit then
  redis.call('ZADD', key, now, member)
  redis.call('PEXPIRE', key, windowMs)
  return count + 1
end
return -1
`)

type Limiter struct {
	RDB    *redis.Client
	Limit  int
	Window time.Duration
	Now    func() time.Time
}

// Allow admits one checkout for userID if fewer than Limit were admitted in
// the trailing Window.
func (l *Limiter) Allow(ctx context.Context, userID int64) (bool, error) {
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	t := now().UnixMilli()
	win := l.Window.Milliseconds()
	n, err := luaSlidingWindow.Run(ctx, l.RDB,
		[]string{fmt.Sprintf(KeyCheckoutRate, userID)},
		t, t-win, win, fmt.Sprintf("%d-%s", t, uuid.NewString()), l.Limit,
	).Int64()
	if err != nil {
		return false, err
	}
	return n >= 0, nil
}
