// Package action implements the Action Executor (spec §4.3): click,
// input, and pressEnter against a resolved element, synthesizing DOM
// events the way a live page accepts as human input. Grounded in the
// teacher's internal/scraper/browser/typing.go (keystroke dispatch) and
// Easonliuliang-purify/scraper/actions.go (click/scroll dispatch via
// proto.InputMouseButtonLeft).
package action

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/pharrisenterprises/replaycore/internal/errs"
)

// actionableJS reports, as {attached, visible, disabled}, the three
// pre-conditions spec §4.3 checks before every action.
const actionableJS = `function() {
	const attached = document.contains(this) || (this.getRootNode && this.getRootNode().contains && this.getRootNode().contains(this));
	const style = window.getComputedStyle(this);
	const visible = style.display !== 'none' && style.visibility !== 'hidden' && parseFloat(style.opacity) !== 0;
	const disabled = !!this.disabled;
	return {attached: attached, visible: visible, disabled: disabled};
}`

type actionableState struct {
	Attached bool `json:"attached"`
	Visible  bool `json:"visible"`
	Disabled bool `json:"disabled"`
}

// checkActionable verifies el is attached, not disabled, and visible, per
// spec §4.3's pre-action checks. When showHiddenElements is true a hidden
// element passes the check as it is; its styles are not changed to un-hide
// it. Violations fail with a diagnostic naming the condition.
func checkActionable(el *rod.Element, op string, showHiddenElements bool) error {
	res, err := el.Eval(actionableJS)
	if err != nil {
		return fmt.Errorf("action.checkActionable: %w", err)
	}
	var st actionableState
	if err := res.Value.Unmarshal(&st); err != nil {
		return fmt.Errorf("action.checkActionable: unmarshal: %w", err)
	}

	if !st.Attached {
		return errs.New(errs.ElementNotActionable, op, "element detached from document")
	}
	if st.Disabled {
		return errs.New(errs.ElementNotActionable, op, "element is disabled")
	}
	if !st.Visible && !showHiddenElements {
		return errs.New(errs.ElementNotActionable, op, "element is hidden and showHiddenElements is false")
	}
	return nil
}
