package finder

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-rod/rod"
	"github.com/pharrisenterprises/replaycore/internal/browser"
	"github.com/pharrisenterprises/replaycore/internal/locator"
)

// baseConfidence is each strategy's base confidence before the visibility
// factor is applied, ordered from most to least reliable.
var baseConfidence = map[string]float64{
	"xpath":          1.00,
	"id":             0.90,
	"name":           0.80,
	"aria":           0.75,
	"placeholder":    0.70,
	"dataAttributes": 0.65,
	"css":            0.60,
	"fuzzyText":      0.40,
	"boundingBox":    0.30,
}

// strategyFunc resolves candidates for one strategy. A strategy that
// disambiguates internally (fuzzyText, boundingBox) returns at most one
// element; any other strategy returning more than one is a failure for
// that strategy.
type strategyFunc func(page *rod.Page, bundle *locator.Bundle, cfg locatorConfig) (rod.Elements, error)

// locatorConfig is the subset of config.LocatorConfig the strategies need,
// kept narrow so the strategy functions do not depend on the full
// config.Config that Finder holds.
type locatorConfig struct {
	FuzzyMatchThreshold  float64
	BoundingBoxThreshold float64
}

var strategyRegistry = map[string]strategyFunc{
	"xpath":          stratXPath,
	"id":             stratID,
	"name":           stratName,
	"aria":           stratAria,
	"placeholder":    stratPlaceholder,
	"dataAttributes": stratDataAttrs,
	"css":            stratCSS,
	"fuzzyText":      stratFuzzyText,
	"boundingBox":    stratBoundingBox,
}

// applicable reports whether bundle carries the fields a strategy needs.
// Strategies missing their required fields are skipped rather than
// attempted.
func applicable(strategy string, bundle *locator.Bundle) bool {
	switch strategy {
	case "xpath":
		return bundle.Xpath != ""
	case "id":
		return bundle.ID != ""
	case "name":
		return bundle.Name != ""
	case "aria":
		return bundle.Aria != ""
	case "placeholder":
		return bundle.Placeholder != ""
	case "dataAttributes":
		return len(bundle.DataAttrs) > 0
	case "css":
		return bundle.CSS != ""
	case "fuzzyText":
		return bundle.Text != ""
	case "boundingBox":
		return bundle.Bounding != nil
	}
	return false
}

func stratXPath(page *rod.Page, bundle *locator.Bundle, _ locatorConfig) (rod.Elements, error) {
	if bundle.InShadowDOM() {
		el, err := browser.FindInShadowChain(page, bundle.Xpath, bundle.ShadowHosts)
		if err != nil {
			return nil, nil
		}
		return rod.Elements{el}, nil
	}
	if bundle.InIframe() {
		el, err := browser.FindInIframeChain(page, bundle.Xpath, bundle.IframeChain)
		if err != nil {
			return nil, nil
		}
		return rod.Elements{el}, nil
	}
	el, err := page.ElementX(bundle.Xpath)
	if err != nil {
		return nil, nil
	}
	return rod.Elements{el}, nil
}

func attrSelector(attr, value string) string {
	return fmt.Sprintf("[%s=%q]", attr, value)
}

func stratID(page *rod.Page, bundle *locator.Bundle, _ locatorConfig) (rod.Elements, error) {
	return deepQuery(page, attrSelector("id", bundle.ID))
}

func stratName(page *rod.Page, bundle *locator.Bundle, _ locatorConfig) (rod.Elements, error) {
	sel := attrSelector("name", bundle.Name)
	if bundle.Tag != "" {
		sel = bundle.Tag + sel
	}
	return deepQuery(page, sel)
}

func stratAria(page *rod.Page, bundle *locator.Bundle, _ locatorConfig) (rod.Elements, error) {
	sel := attrSelector("aria-label", bundle.Aria)
	return deepQuery(page, sel)
}

func stratPlaceholder(page *rod.Page, bundle *locator.Bundle, _ locatorConfig) (rod.Elements, error) {
	return deepQuery(page, attrSelector("placeholder", bundle.Placeholder))
}

func stratDataAttrs(page *rod.Page, bundle *locator.Bundle, _ locatorConfig) (rod.Elements, error) {
	keys := make([]string, 0, len(bundle.DataAttrs))
	for k := range bundle.DataAttrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(attrSelector(k, bundle.DataAttrs[k]))
	}
	return deepQuery(page, sb.String())
}

func stratCSS(page *rod.Page, bundle *locator.Bundle, _ locatorConfig) (rod.Elements, error) {
	return deepQuery(page, bundle.CSS)
}

// stratFuzzyText ranks candidates sharing bundle.Tag by token-set
// similarity against bundle.Text, accepting the single best match above
// cfg.FuzzyMatchThreshold.
func stratFuzzyText(page *rod.Page, bundle *locator.Bundle, cfg locatorConfig) (rod.Elements, error) {
	sel := "*"
	if bundle.Tag != "" {
		sel = bundle.Tag
	}
	candidates, err := deepQuery(page, sel)
	if err != nil {
		return nil, err
	}

	var best *rod.Element
	bestScore := cfg.FuzzyMatchThreshold
	for _, el := range candidates {
		text, err := extractText(el)
		if err != nil || text == "" {
			continue
		}
		score := tokenSetSimilarity(locator.TruncateText(text), bundle.Text)
		if score > bestScore {
			bestScore = score
			best = el
		}
	}
	if best == nil {
		return nil, nil
	}
	return rod.Elements{best}, nil
}

// stratBoundingBox ranks candidates sharing bundle.Tag by centroid distance
// to bundle.Bounding, accepting the single closest match within
// cfg.BoundingBoxThreshold pixels.
func stratBoundingBox(page *rod.Page, bundle *locator.Bundle, cfg locatorConfig) (rod.Elements, error) {
	sel := "*"
	if bundle.Tag != "" {
		sel = bundle.Tag
	}
	candidates, err := deepQuery(page, sel)
	if err != nil {
		return nil, err
	}

	targetX, targetY := centroid(*bundle.Bounding)

	var best *rod.Element
	bestDist := cfg.BoundingBoxThreshold
	for _, el := range candidates {
		rect, err := boundingRectOf(el)
		if err != nil {
			continue
		}
		x, y := centroid(*rect)
		d := distance(x, y, targetX, targetY)
		if d <= bestDist {
			bestDist = d
			best = el
		}
	}
	if best == nil {
		return nil, nil
	}
	return rod.Elements{best}, nil
}
