package main

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	maxBackoff = 10 * time.Second
	jitterSpan = 250 * time.Millisecond
)

// doubled grows wait toward maxBackoff, starting from base.
func doubled(wait, base time.Duration) time.Duration {
	if wait < base {
		wait = base
	}
	return min(2*wait, maxBackoff)
}

func jittered(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterSpan)
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
