package automation

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/nerrad567/telemetry-core/internal/infrastructure/config"
)

// RetryPolicy bounds how often an action step is attempted.
// MaxAttempts of 1 (or less) disables retry.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// RetryPolicyFromConfig converts the automation.retry config section.
func RetryPolicyFromConfig(cfg config.RetryConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  cfg.MaxAttempts,
		InitialDelay: time.Duration(cfg.InitialDelayMS) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.MaxDelayMS) * time.Millisecond,
	}
}

// Do runs fn until it succeeds, attempts are exhausted or ctx is done.
// The delay doubles after every failure, capped at MaxDelay, with up to 25%
// jitter added.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := max(p.MaxAttempts, 1)
	delay := p.InitialDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	maxDelay := p.MaxDelay
	if maxDelay < delay {
		maxDelay = delay
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		sleep := delay
		if quarter := int64(delay / 4); quarter > 0 {
			sleep += time.Duration(rand.Int64N(quarter))
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled after %d attempts: %w", attempt, lastErr)
		case <-timer.C:
		}

		delay = min(delay*2, maxDelay)
	}

	if attempts == 1 {
		return lastErr
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
