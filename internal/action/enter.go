package action

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/pharrisenterprises/replaycore/internal/config"
	"github.com/pharrisenterprises/replaycore/internal/errs"
)

// PressEnter dispatches a real Enter keypress (keydown then keyup, both
// bubbling, per spec §4.3) via the same CDP input protocol the teacher's
// browser.TypeFast uses for per-character typing.
func PressEnter(ctx context.Context, el *rod.Element, cfg *config.Config) Result {
	start := time.Now()

	if err := checkActionable(el, "action.PressEnter", cfg.Behavior.ShowHiddenElements); err != nil {
		return Result{Success: false, Error: err, Duration: time.Since(start)}
	}

	if cfg.Behavior.FocusBeforeAction {
		if err := el.Focus(); err != nil {
			return Result{Success: false, Error: errs.Wrap(errs.ActionFailed, "action.PressEnter", err, "focus failed"), Duration: time.Since(start)}
		}
	}

	sleepCtx(ctx, cfg.Timing.PreInputDelay)

	err := el.Type(input.Enter)

	sleepCtx(ctx, cfg.Timing.PostInputDelay)

	if err != nil {
		return Result{Success: false, Error: errs.Wrap(errs.ActionFailed, "action.PressEnter", err, "enter dispatch failed"), Duration: time.Since(start)}
	}
	return Result{Success: true, Duration: time.Since(start)}
}
