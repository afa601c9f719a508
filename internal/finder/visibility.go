package finder

import (
	"fmt"

	"github.com/go-rod/rod"
)

// visibilityFactorJS computes the spec §4.2 visibility check against the
// element passed as `this`: visible when display is not none, visibility is
// not hidden, and opacity is not 0. A zero-size bounding rect does not
// disqualify an element (many inputs report zero size in test-doubles).
const visibilityFactorJS = `function() {
	const style = window.getComputedStyle(this);
	if (style.display === 'none') return false;
	if (style.visibility === 'hidden') return false;
	if (parseFloat(style.opacity) === 0) return false;
	return true;
}`

// VisibilityFactor returns 1.0 for a visible element and 0.5 for one that
// is attached but hidden, per spec §4.2's confidence formula.
func VisibilityFactor(el *rod.Element) (float64, error) {
	res, err := el.Eval(visibilityFactorJS)
	if err != nil {
		return 0, fmt.Errorf("finder.VisibilityFactor: %w", err)
	}
	if res.Value.Bool() {
		return 1.0, nil
	}
	return 0.5, nil
}
