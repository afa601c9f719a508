package finder

import (
	"fmt"
	"math"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/pharrisenterprises/replaycore/internal/browser"
	"github.com/pharrisenterprises/replaycore/internal/locator"
)

// deepQuery runs selector through the DOM traversal layer's shadow/iframe
// piercing walk, so every non-xpath strategy searches the whole reachable
// tree the way spec §4.2 implies (only the xpath strategy is chain-aware).
func deepQuery(page *rod.Page, selector string) (rod.Elements, error) {
	els, err := browser.QuerySelectorAllDeep(page, selector)
	if err != nil {
		return nil, fmt.Errorf("finder.deepQuery(%q): %w", selector, err)
	}
	return els, nil
}

// boundingRectJS returns the element's page-coordinate bounding rect,
// matching the shape of locator.Bounding.
const boundingRectJS = `function() {
	const r = this.getBoundingClientRect();
	return {x: r.x + window.scrollX, y: r.y + window.scrollY, width: r.width, height: r.height};
}`

func boundingRectOf(el *rod.Element) (*locator.Bounding, error) {
	res, err := el.Eval(boundingRectJS)
	if err != nil {
		return nil, fmt.Errorf("finder.boundingRectOf: %w", err)
	}
	var b locator.Bounding
	if err := res.Value.Unmarshal(&b); err != nil {
		return nil, fmt.Errorf("finder.boundingRectOf: unmarshal: %w", err)
	}
	return &b, nil
}

func centroid(b locator.Bounding) (float64, float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

func distance(x1, y1, x2, y2 float64) float64 {
	dx, dy := x1-x2, y1-y2
	return math.Sqrt(dx*dx + dy*dy)
}

// extractText pulls the element's visible, normalized text via goquery: the
// element's outer HTML is parsed into a standalone document so the
// fuzzyText strategy compares against the same token stream goquery-based
// tooling elsewhere in the stack (cleaner/parser code in the retrieval pack)
// already uses for DOM text extraction.
func extractText(el *rod.Element) (string, error) {
	html, err := el.HTML()
	if err != nil {
		return "", fmt.Errorf("finder.extractText: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("finder.extractText: parse: %w", err)
	}
	return strings.TrimSpace(doc.Text()), nil
}

// tokenSetSimilarity scores two strings by Jaccard similarity over their
// lowercased whitespace-token sets: |intersection| / |union|. Empty inputs
// score 0.
func tokenSetSimilarity(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	intersection := 0
	for tok := range ta {
		if tb[tok] {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}
