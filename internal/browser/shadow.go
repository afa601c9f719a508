package browser

import (
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/pharrisenterprises/replaycore/internal/errs"
)

// interceptorInstallJS installs the optional page-context interceptor (spec
// §4.1, §4.7): it wraps Element.prototype.attachShadow so that a closed
// shadow root is still reachable through a side-channel property,
// __realShadowRoot, which the shadow-chain and deep-query walks below read. Installed
// once per document via EvalOnNewDocument, the same injection point the
// teacher pack uses for stealth.JS (Easonliuliang-purify/scraper/page.go).
const interceptorInstallJS = `() => {
	if (Element.prototype.__replaycoreIntercepted) return;
	Element.prototype.__replaycoreIntercepted = true;
	const original = Element.prototype.attachShadow;
	Element.prototype.attachShadow = function(init) {
		const root = original.call(this, init);
		this.__realShadowRoot = root;
		return root;
	};
}`

// InstallShadowInterceptor arms the closed-shadow-root side channel on page
// for all subsequent navigations/documents.
func InstallShadowInterceptor(page *rod.Page) error {
	_, err := page.EvalOnNewDocument(interceptorInstallJS)
	if err != nil {
		return fmt.Errorf("browser.InstallShadowInterceptor: %w", err)
	}
	return nil
}

// hasShadowRootJS reports, as a boolean, whether the element passed as
// `this` exposes a shadow root: the standard open-mode shadowRoot, or the
// interceptor's side channel for closed roots the page author owns.
const hasShadowRootJS = `function() {
	return !!(this.shadowRoot || this.__realShadowRoot);
}`

// HasShadowRoot reports whether el exposes a shadow root (open, or closed
// and captured by the interceptor).
func HasShadowRoot(el *rod.Element) (bool, error) {
	res, err := el.Eval(hasShadowRootJS)
	if err != nil {
		return false, fmt.Errorf("browser.HasShadowRoot: %w", err)
	}
	return res.Value.Bool(), nil
}

// pierceShadowChainJS walks hostXpaths (an array of xpaths, each relative to
// the previous shadow context, starting at document) piercing into each
// host's shadow root, then evaluates targetXpath in the final context and
// returns the matched element (or null). Returning a live element handle
// from an Eval lets rod wrap it as a *rod.Element via ElementByJS.
const pierceShadowChainJS = `(hostXpathsJSON, targetXpath) => {
	function evalXpath(xpath, ctx) {
		const doc = ctx.ownerDocument || ctx;
		const result = doc.evaluate(xpath, ctx, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null);
		return result.singleNodeValue;
	}

	const hostXpaths = JSON.parse(hostXpathsJSON);
	let ctx = document;

	for (const hx of hostXpaths) {
		const host = evalXpath(hx, ctx === document ? document : ctx);
		if (!host) return null;
		const root = host.shadowRoot || host.__realShadowRoot;
		if (!root) return null;
		ctx = root;
	}

	return evalXpath(targetXpath, ctx === document ? document : ctx);
}`

// FindInShadowChain walks shadowHostXpaths hop by hop, piercing into each
// host's shadow root, and evaluates targetXpath inside the final shadow
// root's context (spec §4.1's findInShadowChain). Returns ElementNotFound if
// any host or the target is missing.
func FindInShadowChain(page *rod.Page, targetXpath string, shadowHostXpaths []string) (*rod.Element, error) {
	hostsJSON, err := json.Marshal(shadowHostXpaths)
	if err != nil {
		return nil, fmt.Errorf("browser.FindInShadowChain: marshal hosts: %w", err)
	}

	el, err := page.ElementByJS(rod.Eval(pierceShadowChainJS, string(hostsJSON), targetXpath))
	if err != nil {
		return nil, errs.Wrap(errs.ElementNotFound, "browser.FindInShadowChain", err,
			fmt.Sprintf("shadow chain of depth %d did not resolve %q", len(shadowHostXpaths), targetXpath))
	}
	return el, nil
}

// querySelectorDeepJS descends into every reachable shadow root (and,
// transitively, iframes that are same-origin enough for contentDocument to
// be readable) collecting elements matching selector.
const querySelectorDeepJS = `(selector) => {
	function walk(root, results) {
		results.push(...root.querySelectorAll(selector));
		const all = root.querySelectorAll('*');
		for (const el of all) {
			const sr = el.shadowRoot || el.__realShadowRoot;
			if (sr) walk(sr, results);
			if (el.tagName === 'IFRAME') {
				try {
					const doc = el.contentDocument;
					if (doc) walk(doc, results);
				} catch (e) {
					// cross-origin, skip
				}
			}
		}
		return results;
	}
	return walk(document, []);
}`

// QuerySelectorAllDeep returns every element matching selector, descending
// into all reachable shadow roots and same-origin iframes (spec §4.1).
func QuerySelectorAllDeep(page *rod.Page, selector string) (rod.Elements, error) {
	els, err := page.ElementsByJS(rod.Eval(querySelectorDeepJS, selector))
	if err != nil {
		return nil, fmt.Errorf("browser.QuerySelectorAllDeep: %w", err)
	}
	return els, nil
}

// QuerySelectorDeep returns the first element matching selector found by
// the same deep walk as QuerySelectorAllDeep, or ElementNotFound.
func QuerySelectorDeep(page *rod.Page, selector string) (*rod.Element, error) {
	els, err := QuerySelectorAllDeep(page, selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, errs.New(errs.ElementNotFound, "browser.QuerySelectorDeep", "no match for "+selector)
	}
	return els[0], nil
}
