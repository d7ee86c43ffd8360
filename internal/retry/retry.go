// Package retry runs an operation a bounded number of times with a fixed
// pause between failed attempts.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy describes how many times to try and how long to wait in between.
type Policy struct {
	MaxAttempts int
	Interval    time.Duration
	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Once is a single attempt with no wait.
func Once() Policy { return Policy{MaxAttempts: 1} }

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	if e.Attempts == 1 {
		return e.Last.Error()
	}
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Do calls fn until it succeeds, attempts run out or ctx is cancelled.
// fn receives the 1-based attempt number.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if last == nil {
				return err
			}
			return &ExhaustedError{Attempts: attempt - 1, Last: last}
		}
		last = fn(ctx, attempt)
		if last == nil {
			return nil
		}
		if attempt < attempts && p.Interval > 0 {
			if err := p.sleep(ctx, p.Interval); err != nil {
				return &ExhaustedError{Attempts: attempt, Last: last}
			}
		}
	}
	return &ExhaustedError{Attempts: attempts, Last: last}
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}

// SleepContext waits for d unless ctx finishes first.
func SleepContext(ctx context.Context, d time.Duration) error {
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
