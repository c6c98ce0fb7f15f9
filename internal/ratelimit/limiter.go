// Package ratelimit provides request pacing for sequential API clients.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Interval enforces a minimum gap between consecutive requests by tracking
// the timestamp of the last request and sleeping out the remainder. This is
// a leaky-bucket-of-one: sufficient because callers issue requests
// sequentially, never concurrently.
//
// State is owned by the Interval instance, so independent clients and tests
// pace themselves without interference. Two pipeline processes sharing one
// backend quota still limit independently and can jointly exceed it.
type Interval struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time

	// sleep is swappable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewInterval creates a limiter allowing at most one request per interval.
// A non-positive interval disables pacing.
func NewInterval(interval time.Duration) *Interval {
	return &Interval{
		interval: interval,
		sleep:    sleepCtx,
	}
}

// PerSecond creates a limiter allowing at most rps requests per second.
func PerSecond(rps float64) *Interval {
	if rps <= 0 {
		return NewInterval(0)
	}
	return NewInterval(time.Duration(float64(time.Second) / rps))
}

// Wait blocks until the minimum interval since the previous request has
// elapsed, then records the current request. Returns ctx.Err() if the
// context is cancelled mid-wait.
func (i *Interval) Wait(ctx context.Context) error {
	if i.interval <= 0 {
		return nil
	}

	i.mu.Lock()
	now := time.Now()
	remaining := i.interval - now.Sub(i.last)
	if remaining <= 0 {
		i.last = now
		i.mu.Unlock()
		return nil
	}
	// Reserve the slot before sleeping so a sequential caller always
	// advances the schedule even if the sleep is interrupted.
	i.last = now.Add(remaining)
	i.mu.Unlock()

	return i.sleep(ctx, remaining)
}

// WaitTime reports how long the next Wait would block.
func (i *Interval) WaitTime() time.Duration {
	if i.interval <= 0 {
		return 0
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	remaining := i.interval - time.Since(i.last)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
