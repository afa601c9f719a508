package action

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/pharrisenterprises/replaycore/internal/config"
	"github.com/pharrisenterprises/replaycore/internal/errs"
)

// Result is the outcome of one action dispatch (spec §4.3).
type Result struct {
	Success  bool
	Error    error
	Duration time.Duration
}

const scrollIntoViewJS = `function(block, behavior) {
	this.scrollIntoView({block: block, behavior: behavior});
}`

const centerPointJS = `function() {
	const r = this.getBoundingClientRect();
	return {x: r.x + r.width / 2, y: r.y + r.height / 2};
}`

const dispatchClickJS = `function() {
	this.dispatchEvent(new MouseEvent('click', {bubbles: true, cancelable: true, view: window}));
}`

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Click synthesizes a click on el, following spec §4.3: optional
// scroll-into-view, optional animation quiesce wait, optional highlight,
// then either a human-like mousedown/mouseup/click sequence with jitter or
// a single synthetic click event, bracketed by pre/post action delays.
func Click(ctx context.Context, el *rod.Element, page *rod.Page, cfg *config.Config) Result {
	start := time.Now()

	if err := checkActionable(el, "action.Click", cfg.Behavior.ShowHiddenElements); err != nil {
		return Result{Success: false, Error: err, Duration: time.Since(start)}
	}

	if cfg.Behavior.ScrollIntoView {
		if _, err := el.Eval(scrollIntoViewJS, string(cfg.Behavior.ScrollBlock), string(cfg.Behavior.ScrollBehavior)); err != nil {
			return Result{Success: false, Error: errs.Wrap(errs.ActionFailed, "action.Click", err, "scrollIntoView failed"), Duration: time.Since(start)}
		}
	}

	if cfg.Behavior.WaitForAnimations {
		waitStable(ctx, page, cfg.Behavior.AnimationTimeout)
	}

	if cfg.Visual.HighlightElements {
		unhighlight := highlight(el, cfg.Visual.HighlightColor, cfg.Visual.HighlightBorderWidth)
		defer unhighlight()
		sleepCtx(ctx, cfg.Visual.HighlightDuration)
	}

	sleepCtx(ctx, cfg.Timing.PreClickDelay)

	var err error
	if cfg.Behavior.HumanLikeMouse {
		err = humanClick(el, page)
	} else {
		_, evalErr := el.Eval(dispatchClickJS)
		err = evalErr
	}

	sleepCtx(ctx, cfg.Timing.PostClickDelay)

	if err != nil {
		return Result{Success: false, Error: errs.Wrap(errs.ActionFailed, "action.Click", err, "click dispatch failed"), Duration: time.Since(start)}
	}
	return Result{Success: true, Duration: time.Since(start)}
}

// humanClick dispatches a real CDP mousedown/mouseup sequence with a short
// jitter, which the browser itself synthesizes into a trailing click event
// — satisfying "dispatches mousedown before click" (spec §8 Action laws).
func humanClick(el *rod.Element, page *rod.Page) error {
	res, err := el.Eval(centerPointJS)
	if err != nil {
		return fmt.Errorf("humanClick: center point: %w", err)
	}
	var p point
	if err := res.Value.Unmarshal(&p); err != nil {
		return fmt.Errorf("humanClick: unmarshal center point: %w", err)
	}

	if err := page.Mouse.MoveTo(proto.Point{X: p.X, Y: p.Y}); err != nil {
		return fmt.Errorf("humanClick: move: %w", err)
	}
	if err := page.Mouse.Down(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("humanClick: mousedown: %w", err)
	}
	time.Sleep(time.Duration(20+rand.Intn(60)) * time.Millisecond)
	if err := page.Mouse.Up(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("humanClick: mouseup: %w", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// waitStable gives the page up to timeout to settle before the click fires,
// discarding any error: a DOM that never quiesces within budget (a running
// CSS animation, a polling widget) is not itself a reason to fail the click,
// only to stop waiting for it. MustWaitDOMStable panics on timeout, which is
// the expected outcome here whenever animations outlast AnimationTimeout, so
// the call is wrapped in a recover rather than left to crash the process.
func waitStable(ctx context.Context, page *rod.Page, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() { recover() }()
		page.Timeout(timeout).MustWaitDOMStable()
	}()
	select {
	case <-ctx.Done():
	case <-done:
	case <-time.After(timeout):
	}
}

const highlightJS = `function(color, width) {
	this.__replaycorePrevOutline = this.style.outline;
	this.style.outline = width + 'px solid ' + color;
}`

const unhighlightJS = `function() {
	this.style.outline = this.__replaycorePrevOutline || '';
}`

// highlight draws a temporary outline around el and returns a function that
// restores its previous outline style.
func highlight(el *rod.Element, color string, width int) func() {
	_, _ = el.Eval(highlightJS, color, width)
	return func() {
		_, _ = el.Eval(unhighlightJS)
	}
}
