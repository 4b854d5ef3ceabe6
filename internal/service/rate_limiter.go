package service

import (
	"strings"
	"sync"
	"time"
)

// UnknownIdentity agrupa a todos los clientes sin cabecera de IP en un mismo bucket.
const UnknownIdentity = "unknown"

const sweepThreshold = 10000

// RateLimiter limita requests por identidad en una ventana fija.
// CheckLimit consume un request cuando lo permite.
type RateLimiter interface {
	CheckLimit(identity string) bool
	Remaining(identity string) int
}

type rateLimitRecord struct {
	count       int
	windowStart time.Time
}

type memoryRateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	records map[string]*rateLimitRecord
	now     func() time.Time
}

// NewMemoryRateLimiter crea un rate limiter en memoria. El estado se pierde al reiniciar.
func NewMemoryRateLimiter(window time.Duration, max int) RateLimiter {
	return newMemoryRateLimiter(window, max, func() time.Time { return time.Now().UTC() })
}

func newMemoryRateLimiter(window time.Duration, max int, now func() time.Time) *memoryRateLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &memoryRateLimiter{
		window:  window,
		max:     max,
		records: make(map[string]*rateLimitRecord),
		now:     now,
	}
}

func (l *memoryRateLimiter) CheckLimit(identity string) bool {
	key := normalizeIdentity(identity)
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	rec := l.current(key, now)
	if rec == nil {
		if len(l.records) >= sweepThreshold {
			l.sweep(now)
		}
		rec = &rateLimitRecord{windowStart: now}
		l.records[key] = rec
	}
	if rec.count >= l.max {
		return false
	}
	rec.count++
	return true
}

func (l *memoryRateLimiter) Remaining(identity string) int {
	key := normalizeIdentity(identity)
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.current(key, l.now())
	if rec == nil {
		return l.max
	}
	if remaining := l.max - rec.count; remaining > 0 {
		return remaining
	}
	return 0
}

// current devuelve el registro vigente o nil si no existe o su ventana venció.
func (l *memoryRateLimiter) current(key string, now time.Time) *rateLimitRecord {
	rec, ok := l.records[key]
	if !ok {
		return nil
	}
	if now.After(rec.windowStart.Add(l.window)) {
		delete(l.records, key)
		return nil
	}
	return rec
}

func (l *memoryRateLimiter) sweep(now time.Time) {
	for key, rec := range l.records {
		if now.After(rec.windowStart.Add(l.window)) {
			delete(l.records, key)
		}
	}
}

func normalizeIdentity(identity string) string {
	key := strings.ToLower(strings.TrimSpace(identity))
	if key == "" {
		return UnknownIdentity
	}
	return key
}
