package finder_test

import (
	"context"
	"testing"
	"time"

	"github.com/pharrisenterprises/replaycore/internal/config"
	"github.com/pharrisenterprises/replaycore/internal/errs"
	"github.com/pharrisenterprises/replaycore/internal/finder"
	"github.com/pharrisenterprises/replaycore/internal/locator"
	"github.com/pharrisenterprises/replaycore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinder_XPathStrategy_Succeeds(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `<button id="submit">OK</button>`)

	f := finder.New(config.Default())
	bundle := &locator.Bundle{Tag: "button", Xpath: `//*[@id="submit"]`}

	res, err := f.Find(context.Background(), page, bundle)
	require.NoError(t, err)
	assert.Equal(t, "xpath", res.Strategy)
	assert.InDelta(t, 1.0, res.Confidence, 0.001)
}

func TestFinder_IDStrategy_SucceedsWhenXPathStale(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `<button id="submit">OK</button>`)

	f := finder.New(config.Default())
	bundle := &locator.Bundle{
		Tag:   "button",
		Xpath: `//*[@id="does-not-exist"]`,
		ID:    "submit",
	}

	res, err := f.Find(context.Background(), page, bundle)
	require.NoError(t, err)
	assert.Equal(t, "id", res.Strategy)
	assert.InDelta(t, 0.9, res.Confidence, 0.001)
}

func TestFinder_FallsThroughToAria(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `<button id="submit-v2" aria-label="Submit">OK</button>`)

	f := finder.New(config.Default())
	bundle := &locator.Bundle{
		Tag:  "button",
		ID:   "submit",
		Aria: "Submit",
	}

	res, err := f.Find(context.Background(), page, bundle)
	require.NoError(t, err)
	assert.Equal(t, "aria", res.Strategy)
	assert.InDelta(t, 0.75, res.Confidence, 0.001)
}

func TestFinder_ElementNotFound_CarriesAttemptedStrategies(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `<div>nothing here</div>`)

	cfg := config.Default()
	cfg.Timing.MaxRetries = 0
	cfg.Timing.FindTimeout = 0

	f := finder.New(cfg)
	bundle := &locator.Bundle{Tag: "button", ID: "missing"}

	_, err := f.Find(context.Background(), page, bundle)
	require.Error(t, err)

	kind, ok := errs.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errs.ElementNotFound, kind)
}

func TestFinder_NoStrategies_DegradesToNotFound(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `<button id="submit">OK</button>`)

	cfg := config.Default()
	cfg.Locator.StrategyPriority = nil
	cfg.Timing.MaxRetries = 0
	cfg.Timing.FindTimeout = 0

	f := finder.New(cfg)
	bundle := &locator.Bundle{Tag: "button", ID: "submit", Xpath: `//*[@id="submit"]`}

	_, err := f.Find(context.Background(), page, bundle)
	require.Error(t, err)
	kind, _ := errs.KindOf(err)
	assert.Equal(t, errs.ElementNotFound, kind)
}

func TestFinder_RetriesUntilAsyncElementAppears(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `
		<script>
			setTimeout(() => {
				const b = document.createElement('button');
				b.id = 'submit';
				document.body.appendChild(b);
			}, 60);
		</script>
	`)

	cfg := config.Default()
	cfg.Timing.RetryInterval = 20 * time.Millisecond
	cfg.Timing.FindTimeout = 2 * time.Second
	cfg.Timing.MaxRetries = 10

	f := finder.New(cfg)
	bundle := &locator.Bundle{Tag: "button", ID: "submit"}

	res, err := f.Find(context.Background(), page, bundle)
	require.NoError(t, err, "retry loop must pick up an element that appears after the first pass")
	assert.Equal(t, "id", res.Strategy)
}

func TestFinder_HiddenElement_HalvesConfidence(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `<button id="submit" style="display:none">OK</button>`)

	f := finder.New(config.Default())
	bundle := &locator.Bundle{Tag: "button", ID: "submit"}

	res, err := f.Find(context.Background(), page, bundle)
	require.NoError(t, err)
	assert.InDelta(t, 0.45, res.Confidence, 0.001)
}
