// Package finder implements the Element Finder: nine independent
// resolution strategies tried in priority order against a target document,
// with a retry loop and a visibility-weighted confidence score. Grounded in
// the teacher's selector-driven BBVA scraper (a single, hardcoded strategy
// per field) generalized into a full, configurable strategy pipeline.
package finder

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/pharrisenterprises/replaycore/internal/config"
	"github.com/pharrisenterprises/replaycore/internal/errs"
	"github.com/pharrisenterprises/replaycore/internal/locator"
)

// Result is what the finder returns for one successful resolution: the
// element, the strategy that found it, its final confidence, and how many
// retry rounds it took.
type Result struct {
	Element       *rod.Element
	Strategy      string
	Confidence    float64
	RetryAttempts int
}

// Finder resolves a locator.Bundle to a live element on a target document.
type Finder struct {
	cfg *config.Config
	bo  *backoff
}

// New builds a Finder bound to cfg's locator and timing settings.
func New(cfg *config.Config) *Finder {
	return &Finder{cfg: cfg, bo: newBackoff(cfg)}
}

// Find tries cfg's active strategy priority order against bundle on page,
// retrying the whole pipeline until a strategy succeeds, the timeout
// expires, or maxRetries is exhausted — whichever comes first (spec §4.2's
// retry loop). Returns errs.ElementNotFound carrying the strategies
// attempted and their per-strategy candidate counts when nothing matches.
func (f *Finder) Find(ctx context.Context, page *rod.Page, bundle *locator.Bundle) (*Result, error) {
	if bundle == nil {
		return nil, errs.New(errs.InvalidStep, "finder.Find", "bundle is nil")
	}

	lc := locatorConfig{
		FuzzyMatchThreshold:  f.cfg.Locator.FuzzyMatchThreshold,
		BoundingBoxThreshold: f.cfg.Locator.BoundingBoxThreshold,
	}
	strategies := f.cfg.ActiveStrategies()

	deadline := time.Now().Add(f.cfg.Timing.FindTimeout)
	maxRetries := f.cfg.Timing.MaxRetries

	var attempted []string
	candidateCounts := make(map[string]int)

	for attempt := 0; ; attempt++ {
		select {
		case <-ctx.Done():
			return nil, errs.Wrap(errs.Aborted, "finder.Find", ctx.Err(), "find aborted via context")
		default:
		}

		for _, strategyName := range strategies {
			if !applicable(strategyName, bundle) {
				continue
			}
			fn, ok := strategyRegistry[strategyName]
			if !ok {
				continue
			}

			if !contains(attempted, strategyName) {
				attempted = append(attempted, strategyName)
			}

			candidates, err := fn(page, bundle, lc)
			if err != nil {
				continue
			}
			candidateCounts[strategyName] = len(candidates)

			if len(candidates) != 1 {
				continue
			}

			el := candidates[0]
			factor, verr := VisibilityFactor(el)
			if verr != nil {
				continue
			}

			return &Result{
				Element:       el,
				Strategy:      strategyName,
				Confidence:    baseConfidence[strategyName] * factor,
				RetryAttempts: attempt,
			}, nil
		}

		if attempt >= maxRetries || time.Now().After(deadline) {
			break
		}

		if err := f.bo.wait(ctx, attempt); err != nil {
			return nil, errs.Wrap(errs.Aborted, "finder.Find", err, "find aborted via context")
		}
	}

	e := errs.NotFound("finder.Find", attempted, candidateCounts, "no strategy produced a unique match within budget")
	return nil, e
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
