package stream

import (
	"context"
	"time"

	"intrusion-worker-go/internal/retry"
)

// Clock is the time source for pacing.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	return retry.SleepContext(ctx, d)
}

// RealClock uses wall time.
var RealClock Clock = realClock{}

// AdaptiveDelay is how long to wait after a frame: the rest of the tick, but
// never less than floor.
func AdaptiveDelay(tick, processing, floor time.Duration) time.Duration {
	if floor < 0 {
		floor = 0
	}
	return max(tick-processing, floor)
}

// tooEarly reports whether a frame read at now arrives before the next tick.
func tooEarly(last, now time.Time, tick time.Duration) bool {
	if last.IsZero() {
		return false
	}
	return now.Sub(last) < tick
}
