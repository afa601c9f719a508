package config

import (
	"time"

	"github.com/pharrisenterprises/replaycore/internal/errs"
)

// ApplyPreset overlays one of the named presets (spec §6) onto cfg in
// place. Presets are shallow overrides of Default(), applied before
// environment overrides and Validate().
func ApplyPreset(cfg *Config, name string) error {
	switch name {
	case "default":
		// no-op, cfg is already Default()
	case "fast":
		applyFast(cfg)
	case "realistic":
		applyRealistic(cfg)
	case "debug":
		applyDebug(cfg)
	case "tolerant":
		applyTolerant(cfg)
	default:
		return errs.New(errs.ConfigInvalid, "config.ApplyPreset", "unknown preset: "+name)
	}
	return nil
}

// applyFast minimizes every delay for CI and fast local iteration.
func applyFast(cfg *Config) {
	cfg.Timing.StepDelay = 0
	cfg.Timing.HumanDelay = nil
	cfg.Timing.RetryInterval = 50 * time.Millisecond
	cfg.Timing.MaxRetries = 5
	cfg.Behavior.HumanLikeMouse = false
	cfg.Behavior.WaitForAnimations = false
	cfg.Visual.HighlightElements = false
}

// applyRealistic adds human-like jitter to mimic an actual user session.
func applyRealistic(cfg *Config) {
	hd := [2]time.Duration{300 * time.Millisecond, 900 * time.Millisecond}
	cfg.Timing.HumanDelay = &hd
	cfg.Timing.KeystrokeDelay = 60 * time.Millisecond
	cfg.Behavior.HumanLikeMouse = true
	cfg.Behavior.WaitForAnimations = true
}

// applyDebug surfaces everything useful while diagnosing a failing replay.
func applyDebug(cfg *Config) {
	cfg.Visual.HighlightElements = true
	cfg.Visual.HighlightDuration = 800 * time.Millisecond
	cfg.Error.CaptureScreenshots = true
	cfg.Error.CaptureHTML = true
	cfg.Error.VerboseErrors = true
	cfg.Behavior.ContinueOnFailure = true
}

// applyTolerant favors finishing a run over failing fast: generous retries,
// continuation on failure at every level, and relaxed row matching.
func applyTolerant(cfg *Config) {
	cfg.Timing.MaxRetries = 25
	cfg.Timing.FindTimeout = 5000 * time.Millisecond
	cfg.Behavior.ContinueOnFailure = true
	cfg.Error.MaxConsecutiveFailures = 0
	cfg.Error.ExponentialBackoff = true
	cfg.Session.ContinueOnRowFailure = true
	cfg.Session.SkipUnmatchedRows = false
}
