package action

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/pharrisenterprises/replaycore/internal/config"
	"github.com/pharrisenterprises/replaycore/internal/errs"
)

// nativeSetValueJS resolves the native value setter for the element's tag
// (bypassing component frameworks that override the "value" property on
// their own prototype, per spec §4.3) and fires input/change afterward.
const nativeSetValueJS = `function(value) {
	const proto = Object.getPrototypeOf(this);
	const descriptor = Object.getOwnPropertyDescriptor(proto, 'value');
	if (descriptor && descriptor.set) {
		descriptor.set.call(this, value);
	} else {
		this.value = value;
	}
	this.dispatchEvent(new Event('input', {bubbles: true}));
	this.dispatchEvent(new Event('change', {bubbles: true}));
}`

// clearValueJS empties the element via the same native-setter protocol, so
// per-character entry starts from a known-empty field.
const clearValueJS = `function() {
	const proto = Object.getPrototypeOf(this);
	const descriptor = Object.getOwnPropertyDescriptor(proto, 'value');
	if (descriptor && descriptor.set) {
		descriptor.set.call(this, '');
	} else {
		this.value = '';
	}
}`

// Input sets el's value to value, following spec §4.3: focus, then either
// (a) the react-safe native-setter protocol plus input/change events, or
// (b) when keystrokeDelay > 0, per-character entry via real synthesized
// keydown/keypress/keyup events — the same protocol the teacher's
// browser.TypeHuman uses, generalized to a configurable delay.
func Input(ctx context.Context, el *rod.Element, value string, cfg *config.Config) Result {
	start := time.Now()

	if err := checkActionable(el, "action.Input", cfg.Behavior.ShowHiddenElements); err != nil {
		return Result{Success: false, Error: err, Duration: time.Since(start)}
	}

	if cfg.Behavior.FocusBeforeAction {
		if err := el.Focus(); err != nil {
			return Result{Success: false, Error: errs.Wrap(errs.ActionFailed, "action.Input", err, "focus failed"), Duration: time.Since(start)}
		}
	}

	sleepCtx(ctx, cfg.Timing.PreInputDelay)

	var err error
	if cfg.Timing.KeystrokeDelay > 0 {
		err = typePerCharacter(ctx, el, value, cfg.Timing.KeystrokeDelay)
	} else {
		_, evalErr := el.Eval(nativeSetValueJS, value)
		err = evalErr
	}

	sleepCtx(ctx, cfg.Timing.PostInputDelay)

	if err != nil {
		return Result{Success: false, Error: errs.Wrap(errs.ActionFailed, "action.Input", err, "value write failed"), Duration: time.Since(start)}
	}
	return Result{Success: true, Duration: time.Since(start)}
}

func typePerCharacter(ctx context.Context, el *rod.Element, value string, delay time.Duration) error {
	if _, err := el.Eval(clearValueJS); err != nil {
		return err
	}
	for _, char := range value {
		if err := el.Type(input.Key(char)); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil
}
