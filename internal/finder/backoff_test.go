package finder

import (
	"context"
	"testing"
	"time"

	"github.com/pharrisenterprises/replaycore/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestBackoff_FlatWhenExponentialDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Timing.RetryInterval = 50 * time.Millisecond
	cfg.Error.ExponentialBackoff = false

	bo := newBackoff(cfg)
	assert.Equal(t, 50*time.Millisecond, bo.delayFor(0))
	assert.Equal(t, 50*time.Millisecond, bo.delayFor(5))
}

func TestBackoff_GrowsGeometricallyUntilCapped(t *testing.T) {
	cfg := config.Default()
	cfg.Timing.RetryInterval = 10 * time.Millisecond
	cfg.Error.ExponentialBackoff = true
	cfg.Error.BackoffMultiplier = 2.0
	cfg.Error.MaxBackoffDelay = 60 * time.Millisecond

	bo := newBackoff(cfg)
	assert.Equal(t, 10*time.Millisecond, bo.delayFor(0))
	assert.Equal(t, 20*time.Millisecond, bo.delayFor(1))
	assert.Equal(t, 40*time.Millisecond, bo.delayFor(2))
	assert.Equal(t, 60*time.Millisecond, bo.delayFor(3), "capped at MaxBackoffDelay")
	assert.Equal(t, 60*time.Millisecond, bo.delayFor(10), "stays capped")
}

func TestBackoff_WaitRespectsContextCancellation(t *testing.T) {
	cfg := config.Default()
	cfg.Timing.RetryInterval = time.Minute
	bo := newBackoff(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := bo.wait(ctx, 0)
	assert.Error(t, err, "a long delay must be interrupted by context deadline")
}

func TestBackoff_ZeroDelayReturnsImmediately(t *testing.T) {
	cfg := config.Default()
	cfg.Timing.RetryInterval = 0
	bo := newBackoff(cfg)

	err := bo.wait(context.Background(), 0)
	assert.NoError(t, err)
}

func TestBackoff_WaitSucceedsAfterItsDelayElapses(t *testing.T) {
	cfg := config.Default()
	cfg.Timing.RetryInterval = 20 * time.Millisecond
	bo := newBackoff(cfg)

	start := time.Now()
	err := bo.wait(context.Background(), 0)
	assert.NoError(t, err, "a finite delay with no cancellation must resolve, not error")
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
