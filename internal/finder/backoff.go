package finder

import (
	"context"
	"time"

	"github.com/pharrisenterprises/replaycore/internal/config"
)

// backoff paces the retry loop's between-attempt delay, growing the wait
// geometrically once cfg.Error.ExponentialBackoff is set and capping it at
// MaxBackoffDelay. Grounded in the teacher pack's purify rate limiter
// (api/middleware/ratelimit.go), repurposed from inbound-request throttling
// to retry pacing, but driven by a plain timer/select rather than a
// burst-limited x/time/rate.Limiter: a limiter built with burst=0 rejects
// every Wait(ctx) call outright (n=1 always exceeds a 0 burst), which would
// turn every retry into an immediate Aborted instead of an actual wait.
type backoff struct {
	cfg *config.Config
}

func newBackoff(cfg *config.Config) *backoff {
	return &backoff{cfg: cfg}
}

// wait blocks for this attempt's backoff delay, or returns immediately if
// ctx is done first.
func (b *backoff) wait(ctx context.Context, attempt int) error {
	delay := b.delayFor(attempt)
	if delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// delayFor computes the delay before retry attempt+1: a flat RetryInterval
// normally, or RetryInterval * BackoffMultiplier^attempt capped at
// MaxBackoffDelay when exponential backoff is enabled.
func (b *backoff) delayFor(attempt int) time.Duration {
	base := b.cfg.Timing.RetryInterval
	if !b.cfg.Error.ExponentialBackoff {
		return base
	}
	mult := b.cfg.Error.BackoffMultiplier
	if mult <= 0 {
		mult = 1
	}
	d := base
	for i := 0; i < attempt; i++ {
		d = time.Duration(float64(d) * mult)
		if b.cfg.Error.MaxBackoffDelay > 0 && d >= b.cfg.Error.MaxBackoffDelay {
			return b.cfg.Error.MaxBackoffDelay
		}
	}
	return d
}
