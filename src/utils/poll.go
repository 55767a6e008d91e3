package utils

import (
	"context"
	"time"
)

// PollConfig bounds a polling loop. A zero Timeout or MaxAttempts means that
// bound is not applied; at least one of them or a cancellable context should
// be set.
type PollConfig struct {
	Interval    time.Duration
	Timeout     time.Duration
	MaxAttempts int
}

// PollUntil evaluates cond immediately and then once per Interval until it
// returns true or a bound is exhausted. It returns true when cond was
// satisfied. The error is non-nil only when ctx ended the loop.
//
// With a Timeout, PollUntil returns no later than Timeout plus one Interval
// (plus the latency of cond itself).
func PollUntil(ctx context.Context, cfg PollConfig, cond func(ctx context.Context, attempt int) bool) (bool, error) {
	start := time.Now()
	deadline := start.Add(cfg.Timeout)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if cond(ctx, attempt) {
			return true, nil
		}
		if cfg.MaxAttempts > 0 && attempt >= cfg.MaxAttempts {
			return false, nil
		}

		wait := cfg.Interval
		if cfg.Timeout > 0 {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return false, nil
			}
			if wait > remaining {
				wait = remaining
			}
		}
		if !SleepContext(ctx, wait) {
			return false, ctx.Err()
		}
	}
}
