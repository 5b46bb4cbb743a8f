package scanner

import (
	"context"
	"time"
)

// Clock abstracts wall-clock reads and delays so scheduling policy can be
// tested without real waits.
type Clock interface {
	Now() time.Time
	// Sleep blocks for the duration, or until the context is done, in which
	// case the context error is returned.
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

// SystemClock returns a Clock backed by real time.
func SystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
