package service

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryRateLimiter_DeniesAfterMax(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := newMemoryRateLimiter(time.Minute, 3, clock.Now)

	for i := 0; i < 3; i++ {
		if !l.CheckLimit("10.0.0.1") {
			t.Fatalf("expected check %d to pass", i+1)
		}
		if got, want := l.Remaining("10.0.0.1"), 3-(i+1); got != want {
			t.Fatalf("expected remaining %d, got %d", want, got)
		}
	}
	if l.CheckLimit("10.0.0.1") {
		t.Fatalf("expected 4th check to be denied")
	}
	if l.Remaining("10.0.0.1") != 0 {
		t.Fatalf("expected remaining to stay at 0")
	}
	if !l.CheckLimit("10.0.0.2") {
		t.Fatalf("expected other identity to have its own bucket")
	}
}

func TestMemoryRateLimiter_ResetsAfterWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := newMemoryRateLimiter(time.Minute, 2, clock.Now)

	l.CheckLimit("ip")
	l.CheckLimit("ip")
	if l.CheckLimit("ip") {
		t.Fatalf("expected deny within window")
	}

	clock.Advance(time.Minute)
	if l.CheckLimit("ip") {
		t.Fatalf("expected deny exactly at window boundary")
	}

	clock.Advance(time.Second)
	if got := l.Remaining("ip"); got != 2 {
		t.Fatalf("expected remaining reset to 2, got %d", got)
	}
	if !l.CheckLimit("ip") {
		t.Fatalf("expected allow after window elapsed")
	}
	if got := l.Remaining("ip"); got != 1 {
		t.Fatalf("expected remaining 1, got %d", got)
	}
}

func TestMemoryRateLimiter_UnknownIdentityShared(t *testing.T) {
	l := NewMemoryRateLimiter(time.Minute, 1)
	if !l.CheckLimit("") {
		t.Fatalf("expected first anonymous request to pass")
	}
	if l.CheckLimit(UnknownIdentity) {
		t.Fatalf("expected blank and unknown identities to share a bucket")
	}
}

func TestMemoryRateLimiter_ConcurrentChecksNeverExceedMax(t *testing.T) {
	l := NewMemoryRateLimiter(time.Minute, 25)

	var allowed int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.CheckLimit("203.0.113.7") {
				atomic.AddInt64(&allowed, 1)
			}
		}()
	}
	wg.Wait()

	if allowed != 25 {
		t.Fatalf("expected exactly 25 allowed, got %d", allowed)
	}
	if l.Remaining("203.0.113.7") != 0 {
		t.Fatalf("expected no remaining requests")
	}
}

func TestMemoryRateLimiter_SweepsExpiredRecords(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := newMemoryRateLimiter(time.Minute, 1, clock.Now)
	for i := 0; i < sweepThreshold; i++ {
		l.records[fmt.Sprintf("198.51.100.%d", i)] = &rateLimitRecord{count: 1, windowStart: clock.Now()}
	}

	clock.Advance(2 * time.Minute)
	l.CheckLimit("fresh")

	if len(l.records) != 1 {
		t.Fatalf("expected expired records to be swept, got %d", len(l.records))
	}
}
