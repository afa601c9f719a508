// Package testutil provides shared browser-test helpers: launching a real
// headless Chromium via Rod the way the teacher's
// internal/scraper/browser/shadow_test.go setupPage helper does, generalized
// here so every DOM-touching package in the module shares one launcher
// helper instead of repeating it per package.
package testutil

import (
	"testing"

	"github.com/go-rod/rod"
)

// NewPage launches a headless Chromium instance and returns a blank page,
// both cleaned up automatically via t.Cleanup.
func NewPage(t *testing.T) *rod.Page {
	t.Helper()

	browser := rod.New().MustConnect()
	t.Cleanup(func() { browser.MustClose() })

	page := browser.MustPage()
	t.Cleanup(func() { page.MustClose() })

	return page
}

// LoadHTML navigates page to about:blank and replaces its body with html,
// the fixture-loading idiom used throughout the finder/action/executor test
// suites in place of standing up a real server for every case.
func LoadHTML(t *testing.T, page *rod.Page, html string) {
	t.Helper()
	page.MustNavigate("about:blank").MustWaitLoad()
	page.MustEval(`(html) => { document.body.innerHTML = html; }`, html)
}
