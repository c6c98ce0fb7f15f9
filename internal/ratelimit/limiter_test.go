package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestWaitFirstCallDoesNotBlock(t *testing.T) {
	limiter := NewInterval(time.Hour)
	limiter.sleep = func(ctx context.Context, d time.Duration) error {
		t.Fatalf("first call slept for %v", d)
		return nil
	}

	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestWaitPacesConsecutiveCalls(t *testing.T) {
	limiter := NewInterval(100 * time.Millisecond)

	var slept []time.Duration
	limiter.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("Wait() call %d error = %v", i, err)
		}
	}

	// First call is free; the two immediate followups must each wait out
	// roughly the full interval.
	if len(slept) != 2 {
		t.Fatalf("slept %d times, want 2: %v", len(slept), slept)
	}
	for i, d := range slept {
		if d <= 0 || d > 100*time.Millisecond {
			t.Errorf("sleep %d = %v, want within (0, 100ms]", i, d)
		}
	}
}

func TestWaitDisabledInterval(t *testing.T) {
	tests := []struct {
		name    string
		limiter *Interval
	}{
		{name: "zero interval", limiter: NewInterval(0)},
		{name: "negative interval", limiter: NewInterval(-time.Second)},
		{name: "non-positive rps", limiter: PerSecond(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.limiter.sleep = func(ctx context.Context, d time.Duration) error {
				t.Fatalf("disabled limiter slept for %v", d)
				return nil
			}
			for i := 0; i < 5; i++ {
				if err := tt.limiter.Wait(context.Background()); err != nil {
					t.Fatalf("Wait() error = %v", err)
				}
			}
		})
	}
}

func TestWaitReturnsContextError(t *testing.T) {
	limiter := NewInterval(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("first Wait() error = %v", err)
	}
	if err := limiter.Wait(ctx); err != context.Canceled {
		t.Fatalf("second Wait() error = %v, want context.Canceled", err)
	}
}

func TestPerSecondInterval(t *testing.T) {
	limiter := PerSecond(30)
	want := time.Second / 30
	if limiter.interval != want {
		t.Errorf("interval = %v, want %v", limiter.interval, want)
	}
}

func TestWaitTime(t *testing.T) {
	limiter := NewInterval(time.Hour)
	if got := limiter.WaitTime(); got != 0 {
		t.Errorf("WaitTime() before any request = %v, want 0", got)
	}

	limiter.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := limiter.WaitTime(); got <= 0 {
		t.Errorf("WaitTime() right after a request = %v, want positive", got)
	}
}
