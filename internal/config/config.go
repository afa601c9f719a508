// Package config defines the replay core's configuration surface (spec §6):
// timing, locator, behavior, visual, error-handling, and session groups,
// loaded with environment-variable overrides the way the teacher pack's
// purify/config.Load does, plus named presets and construction-time
// validation per spec's "Config is validated at construction" rule.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pharrisenterprises/replaycore/internal/errs"
)

// Config is the single nested configuration object of spec §6.
type Config struct {
	Timing   TimingConfig
	Locator  LocatorConfig
	Behavior BehaviorConfig
	Visual   VisualConfig
	Error    ErrorConfig
	Session  SessionConfig
}

// TimingConfig controls every wait and delay in the core.
type TimingConfig struct {
	FindTimeout       time.Duration // default 2000ms
	RetryInterval     time.Duration // default 150ms
	MaxRetries        int           // default 13
	StepDelay         time.Duration // default 0
	HumanDelay        *[2]time.Duration // nil, or [min,max]
	ActionTimeout     time.Duration // default 5000ms
	NavigationTimeout time.Duration // default 30000ms
	PreClickDelay     time.Duration
	PostClickDelay    time.Duration
	PreInputDelay     time.Duration
	PostInputDelay    time.Duration
	KeystrokeDelay    time.Duration
}

// LocatorConfig controls the Element Finder (spec §4.2).
type LocatorConfig struct {
	FuzzyMatchThreshold float64
	BoundingBoxThreshold float64
	StrategyPriority    []string
	DisabledStrategies  []string
	EnableShadowDom     bool
	EnableIframes       bool
	MinConfidence       float64
	PreferExactMatch    bool
}

// ScrollBlock and ScrollBehaviorKind mirror the DOM's scrollIntoView options.
type ScrollBlock string
type ScrollBehaviorKind string

const (
	ScrollBlockStart   ScrollBlock = "start"
	ScrollBlockCenter  ScrollBlock = "center"
	ScrollBlockEnd     ScrollBlock = "end"
	ScrollBlockNearest ScrollBlock = "nearest"

	ScrollSmooth ScrollBehaviorKind = "smooth"
	ScrollAuto   ScrollBehaviorKind = "auto"
)

// BehaviorConfig controls the Action Executor and Step Executor (spec §4.3).
type BehaviorConfig struct {
	ContinueOnFailure bool
	// SkipOnNotFound marks a step "skipped" rather than "failed" when the
	// finder reports ElementNotFound, distinct from ContinueOnFailure: a
	// skipped step never counts toward consecutiveFailures (spec §9 Open
	// Question (a)) while every failed step does; ContinueOnFailure only
	// decides whether a single failed step ends the run.
	SkipOnNotFound    bool
	ScrollIntoView    bool
	ScrollBehavior    ScrollBehaviorKind
	ScrollBlock       ScrollBlock
	HumanLikeMouse    bool
	ReactSafeInput    bool
	FocusBeforeAction bool
	WaitForAnimations bool
	AnimationTimeout  time.Duration
	ShowHiddenElements bool
	VerifyActionable  bool
}

// VisualConfig controls highlighting; no visual UI beyond the element
// highlight box itself is in scope (tables/toasts/overlays are external).
type VisualConfig struct {
	HighlightElements   bool
	HighlightDuration   time.Duration
	HighlightColor      string
	HighlightBorderWidth int
	ShowProgressOverlay bool
	ShowStepNotifications bool
}

// ErrorConfig controls diagnostics capture and backoff (spec §6, §12).
type ErrorConfig struct {
	CaptureScreenshots   bool
	CaptureHTML          bool
	ExponentialBackoff   bool
	MaxBackoffDelay      time.Duration
	BackoffMultiplier    float64
	MaxConsecutiveFailures int // 0 = unlimited
	VerboseErrors        bool
}

// SessionConfig controls the data-driven Session (spec §4.6).
type SessionConfig struct {
	SkipUnmatchedRows     bool
	ContinueOnRowFailure  bool
	MaxRowFailures        int // 0 = unlimited
	RowDelay              time.Duration
}

// AllStrategies is the full nine-strategy priority order in spec §4.2.
var AllStrategies = []string{
	"xpath", "id", "name", "aria", "placeholder", "dataAttributes", "css", "fuzzyText", "boundingBox",
}

// Default returns the spec §6 baseline configuration.
func Default() *Config {
	return &Config{
		Timing: TimingConfig{
			FindTimeout:       2000 * time.Millisecond,
			RetryInterval:     150 * time.Millisecond,
			MaxRetries:        13,
			StepDelay:         0,
			ActionTimeout:     5000 * time.Millisecond,
			NavigationTimeout: 30000 * time.Millisecond,
		},
		Locator: LocatorConfig{
			FuzzyMatchThreshold:  0.4,
			BoundingBoxThreshold: 200,
			StrategyPriority:     append([]string(nil), AllStrategies...),
			EnableShadowDom:      true,
			EnableIframes:        true,
			MinConfidence:        0.5,
			PreferExactMatch:     true,
		},
		Behavior: BehaviorConfig{
			ContinueOnFailure:  false,
			SkipOnNotFound:     false,
			ScrollIntoView:     true,
			ScrollBehavior:     ScrollSmooth,
			ScrollBlock:        ScrollBlockCenter,
			HumanLikeMouse:     true,
			ReactSafeInput:     true,
			FocusBeforeAction:  true,
			WaitForAnimations:  true,
			AnimationTimeout:   500 * time.Millisecond,
			ShowHiddenElements: true,
			VerifyActionable:   true,
		},
		Visual: VisualConfig{
			HighlightElements:   false,
			HighlightDuration:   200 * time.Millisecond,
			HighlightColor:      "#ff5252",
			HighlightBorderWidth: 2,
		},
		Error: ErrorConfig{
			CaptureScreenshots:     false,
			CaptureHTML:            false,
			ExponentialBackoff:     false,
			MaxBackoffDelay:        10 * time.Second,
			BackoffMultiplier:      2.0,
			MaxConsecutiveFailures: 0,
		},
		Session: SessionConfig{
			SkipUnmatchedRows:    true,
			ContinueOnRowFailure: true,
			MaxRowFailures:       0,
			RowDelay:             0,
		},
	}
}

// Validate checks the invariants spec §6 requires at construction time,
// returning a ConfigInvalid error naming the offending field path.
func (c *Config) Validate() error {
	if c.Locator.FuzzyMatchThreshold < 0 || c.Locator.FuzzyMatchThreshold > 1 {
		return errs.New(errs.ConfigInvalid, "config.Validate", "locator.fuzzyMatchThreshold must be in [0,1]")
	}
	if c.Locator.MinConfidence < 0 || c.Locator.MinConfidence > 1 {
		return errs.New(errs.ConfigInvalid, "config.Validate", "locator.minConfidence must be in [0,1]")
	}
	if c.Locator.BoundingBoxThreshold < 0 {
		return errs.New(errs.ConfigInvalid, "config.Validate", "locator.boundingBoxThreshold must be non-negative")
	}
	for _, s := range c.Locator.StrategyPriority {
		if !isKnownStrategy(s) {
			return errs.New(errs.ConfigInvalid, "config.Validate", "locator.strategyPriority contains unknown strategy: "+s)
		}
	}
	if c.Timing.MaxRetries < 0 {
		return errs.New(errs.ConfigInvalid, "config.Validate", "timing.maxRetries must be non-negative")
	}
	if c.Timing.HumanDelay != nil && c.Timing.HumanDelay[0] > c.Timing.HumanDelay[1] {
		return errs.New(errs.ConfigInvalid, "config.Validate", "timing.humanDelay[0] must be <= humanDelay[1]")
	}
	if c.Error.MaxConsecutiveFailures < 0 {
		return errs.New(errs.ConfigInvalid, "config.Validate", "error.maxConsecutiveFailures must be non-negative")
	}
	if c.Session.MaxRowFailures < 0 {
		return errs.New(errs.ConfigInvalid, "config.Validate", "session.maxRowFailures must be non-negative")
	}
	if c.Error.BackoffMultiplier <= 0 {
		return errs.New(errs.ConfigInvalid, "config.Validate", "error.backoffMultiplier must be positive")
	}
	return nil
}

func isKnownStrategy(s string) bool {
	for _, k := range AllStrategies {
		if k == s {
			return true
		}
	}
	return false
}

// ActiveStrategies returns the strategy priority list with disabled
// strategies filtered out, the order the finder actually tries.
func (c *Config) ActiveStrategies() []string {
	disabled := make(map[string]bool, len(c.Locator.DisabledStrategies))
	for _, s := range c.Locator.DisabledStrategies {
		disabled[s] = true
	}
	out := make([]string, 0, len(c.Locator.StrategyPriority))
	for _, s := range c.Locator.StrategyPriority {
		if !disabled[s] {
			out = append(out, s)
		}
	}
	return out
}

// Load builds a Config from Default(), then a preset overlay, then
// environment-variable overrides, then validates it — mirroring the
// teacher pack's purify/config.Load env-driven pattern.
func Load(preset string) (*Config, error) {
	cfg := Default()
	if preset != "" && preset != "default" {
		if err := ApplyPreset(cfg, preset); err != nil {
			return nil, err
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Timing.FindTimeout = envDurationOr("REPLAYCORE_FIND_TIMEOUT_MS", cfg.Timing.FindTimeout)
	cfg.Timing.RetryInterval = envDurationOr("REPLAYCORE_RETRY_INTERVAL_MS", cfg.Timing.RetryInterval)
	cfg.Timing.MaxRetries = envIntOr("REPLAYCORE_MAX_RETRIES", cfg.Timing.MaxRetries)
	cfg.Behavior.HumanLikeMouse = envBoolOr("REPLAYCORE_HUMAN_LIKE_MOUSE", cfg.Behavior.HumanLikeMouse)
	cfg.Visual.HighlightElements = envBoolOr("REPLAYCORE_HIGHLIGHT", cfg.Visual.HighlightElements)
	cfg.Error.VerboseErrors = envBoolOr("REPLAYCORE_VERBOSE_ERRORS", cfg.Error.VerboseErrors)
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}
