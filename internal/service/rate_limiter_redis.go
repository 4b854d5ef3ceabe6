package service

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// El chequeo y el incremento ocurren dentro del script, de forma atómica.
// Devuelve -1 cuando la ventana ya está llena.
const redisRateLimitScript = `
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if current >= tonumber(ARGV[2]) then
  return -1
end
current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`

type redisRateLimiter struct {
	client redisLimiterClient
	window time.Duration
	max    int
	prefix string
}

type redisLimiterClient interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// NewRedisRateLimiter crea un rate limiter durable compartido entre instancias.
func NewRedisRateLimiter(client *redis.Client, window time.Duration, max int) RateLimiter {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisRateLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: "caption:rl:",
	}
}

// CheckLimit falla abierto si Redis no responde.
func (l *redisRateLimiter) CheckLimit(identity string) bool {
	if l == nil || l.client == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	key := l.prefix + normalizeIdentity(identity)
	millis := l.window.Milliseconds()
	if millis <= 0 {
		millis = 60000
	}
	count, err := l.client.Eval(ctx, redisRateLimitScript, []string{key}, millis, l.max).Int()
	if err != nil {
		return true
	}
	return count > 0
}

func (l *redisRateLimiter) Remaining(identity string) int {
	if l == nil || l.client == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	count, err := l.client.Get(ctx, l.prefix+normalizeIdentity(identity)).Int()
	if errors.Is(err, redis.Nil) {
		return l.max
	}
	if err != nil {
		return l.max
	}
	if remaining := l.max - count; remaining > 0 {
		return remaining
	}
	return 0
}
