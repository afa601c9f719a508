// Package browser provides DOM traversal utilities for browser automation
// with Rod: iframe chain discovery, shadow-root chain discovery, and
// chain-based XPath resolution across both (spec §4.1). Grounded in the
// teacher's internal/scraper/browser package, generalized from a
// bank-portal-specific depth-first frame walker into the locator-bundle
// chain resolver the replay core needs.
package browser

import (
	"fmt"
	"net/url"

	"github.com/go-rod/rod"
	"github.com/pharrisenterprises/replaycore/internal/errs"
	"github.com/pharrisenterprises/replaycore/internal/locator"
)

// MaxIframeDepth bounds recursive iframe discovery to defend against
// cycles, per spec §4.1 ("Recursion depth is bounded (default 10)").
const MaxIframeDepth = 10

// FrameInfo is one discovered iframe hop: the element, its frame page (nil
// when cross-origin), whether it is cross-origin, its depth, its index among
// its siblings, and the IframeInfo built from its attributes. No reference to
// the parent frame is kept.
type FrameInfo struct {
	Element       *rod.Element
	Frame         *rod.Page
	IsCrossOrigin bool
	Depth         int
	Index         int
	Info          locator.IframeInfo
}

// DiscoverIframes recursively walks from root, returning one FrameInfo per
// iframe found up to MaxIframeDepth. An iframe whose frame cannot be
// attached (contentDocument unreachable — typically a cross-origin hop) is
// included with IsCrossOrigin=true and Frame=nil, and is not descended into.
func DiscoverIframes(root *rod.Page) ([]FrameInfo, error) {
	var out []FrameInfo
	if err := discoverIframes(root, 0, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func discoverIframes(page *rod.Page, depth int, out *[]FrameInfo) error {
	if depth >= MaxIframeDepth {
		return nil
	}

	page.MustWaitDOMStable()

	iframes, err := page.Elements("iframe")
	if err != nil {
		return fmt.Errorf("browser.discoverIframes: listing iframes: %w", err)
	}

	pageOrigin := originOf(page)

	for i, el := range iframes {
		info := buildIframeInfo(el, i)
		crossOrigin := isCrossOrigin(pageOrigin, info.Src)

		fi := FrameInfo{Element: el, Depth: depth, Index: i, Info: info, IsCrossOrigin: crossOrigin}

		if crossOrigin {
			*out = append(*out, fi)
			continue
		}

		frame, frameErr := el.Frame()
		if frameErr != nil {
			fi.IsCrossOrigin = true
			*out = append(*out, fi)
			continue
		}

		fi.Frame = frame
		*out = append(*out, fi)

		if err := discoverIframes(frame, depth+1, out); err != nil {
			return err
		}
	}

	return nil
}

func buildIframeInfo(el *rod.Element, index int) locator.IframeInfo {
	id, _ := el.Attribute("id")
	name, _ := el.Attribute("name")
	src, _ := el.Attribute("src")

	info := locator.IframeInfo{Index: index}
	if id != nil {
		info.ID = *id
	}
	if name != nil {
		info.Name = *name
	}
	if src != nil {
		info.Src = *src
	}
	return info
}

func originOf(page *rod.Page) string {
	info, err := page.Info()
	if err != nil || info == nil {
		return ""
	}
	u, err := url.Parse(info.URL)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// isCrossOrigin reports whether an iframe's src resolves to a different
// origin than pageOrigin. An empty or relative src is treated as same
// origin (covers srcdoc, about:blank, and relative paths).
func isCrossOrigin(pageOrigin, src string) bool {
	if pageOrigin == "" || src == "" {
		return false
	}
	u, err := url.Parse(src)
	if err != nil || !u.IsAbs() {
		return false
	}
	return u.Scheme+"://"+u.Host != pageOrigin
}

// FindInIframeChain navigates an iframe chain hop by hop — matching each
// hop by id, then name, then src, then index, first hit wins — to land in
// the target document, then evaluates xpath there. Returns ElementNotFound
// if any hop is missing, and CrossOriginBoundary if a hop is cross-origin.
func FindInIframeChain(root *rod.Page, xpath string, chain []locator.IframeInfo) (*rod.Element, error) {
	page := root
	for hopIdx, hop := range chain {
		frames, err := DiscoverIframes(page)
		if err != nil {
			return nil, errs.Wrap(errs.ElementNotFound, "browser.FindInIframeChain", err,
				fmt.Sprintf("listing iframes at hop %d", hopIdx))
		}

		match := matchHop(frames, hop)
		if match == nil {
			return nil, errs.New(errs.ElementNotFound, "browser.FindInIframeChain",
				fmt.Sprintf("no iframe matched hop %d (id=%q name=%q src=%q index=%d)",
					hopIdx, hop.ID, hop.Name, hop.Src, hop.Index))
		}
		if match.IsCrossOrigin {
			return nil, errs.New(errs.CrossOriginBoundary, "browser.FindInIframeChain",
				fmt.Sprintf("hop %d (index=%d) is cross-origin", hopIdx, match.Index))
		}
		page = match.Frame
	}

	el, err := page.ElementX(xpath)
	if err != nil {
		return nil, errs.Wrap(errs.ElementNotFound, "browser.FindInIframeChain", err, "xpath not found in target frame")
	}
	return el, nil
}

// matchHop finds the iframe among frames that best matches hop, trying id,
// then name, then src, then index, first hit wins.
func matchHop(frames []FrameInfo, hop locator.IframeInfo) *FrameInfo {
	if hop.ID != "" {
		for i := range frames {
			if frames[i].Info.ID == hop.ID {
				return &frames[i]
			}
		}
	}
	if hop.Name != "" {
		for i := range frames {
			if frames[i].Info.Name == hop.Name {
				return &frames[i]
			}
		}
	}
	if hop.Src != "" {
		for i := range frames {
			if frames[i].Info.Src == hop.Src {
				return &frames[i]
			}
		}
	}
	for i := range frames {
		if frames[i].Info.Index == hop.Index {
			return &frames[i]
		}
	}
	return nil
}

// GetIFrameBySelector returns the frame context for a single iframe CSS
// selector, kept from the teacher's helper of the same name for callers
// that only need one hop.
func GetIFrameBySelector(page *rod.Page, selector string) (*rod.Page, error) {
	iframeEl, err := page.Element(selector)
	if err != nil {
		return nil, fmt.Errorf("browser.GetIFrameBySelector: iframe element not found: %w", err)
	}

	frame, err := iframeEl.Frame()
	if err != nil {
		return nil, fmt.Errorf("browser.GetIFrameBySelector: failed to get frame context: %w", err)
	}

	return frame, nil
}
