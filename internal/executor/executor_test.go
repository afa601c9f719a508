package executor_test

import (
	"context"
	"testing"

	"github.com/pharrisenterprises/replaycore/internal/config"
	"github.com/pharrisenterprises/replaycore/internal/executor"
	"github.com/pharrisenterprises/replaycore/internal/locator"
	"github.com/pharrisenterprises/replaycore/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestExecute_Click_Passes(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `<button id="go" onclick="window.__n=(window.__n||0)+1">Go</button>`)

	cfg := config.Default()
	cfg.Behavior.WaitForAnimations = false
	e := executor.New(cfg)

	step := locator.Step{
		ID:    "s1",
		Event: locator.EventClick,
		Label: "go-button",
		Bundle: &locator.Bundle{Tag: "button", Xpath: `//*[@id="go"]`, ID: "go"},
	}
	ec := &locator.ExecContext{Page: page}

	res := e.Execute(context.Background(), step, ec)
	assert.Equal(t, locator.StatusPassed, res.Status)
	assert.NoError(t, res.Error)

	n, err := page.Eval(`() => window.__n || 0`)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n.Value.Int())
}

func TestExecute_Input_ResolvesValueFromCSVDirect(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `<input id="email" />`)

	cfg := config.Default()
	e := executor.New(cfg)

	step := locator.Step{
		ID:    "s2",
		Event: locator.EventInput,
		Label: "email",
		Value: "recorded@example.com",
		Bundle: &locator.Bundle{Tag: "input", Xpath: `//*[@id="email"]`, ID: "email"},
	}
	ec := &locator.ExecContext{Page: page, CSVValues: map[string]string{"email": "csv@example.com"}}

	res := e.Execute(context.Background(), step, ec)
	assert.Equal(t, locator.StatusPassed, res.Status)
	assert.Equal(t, executor.SourceCSVDirect, res.ValueSource)
	assert.Equal(t, "csv@example.com", res.UsedValue)

	val, err := page.Eval(`() => document.getElementById('email').value`)
	assert.NoError(t, err)
	assert.Equal(t, "csv@example.com", val.Value.Str())
}

func TestExecute_Input_ResolvesValueFromCSVMapped(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `<input id="email" />`)

	cfg := config.Default()
	e := executor.New(cfg)

	step := locator.Step{
		ID:    "s2b",
		Event: locator.EventInput,
		Label: "Email Field",
		Value: "recorded@example.com",
		Bundle: &locator.Bundle{Tag: "input", Xpath: `//*[@id="email"]`, ID: "email"},
	}
	ec := &locator.ExecContext{
		Page:          page,
		CSVValues:     map[string]string{"email": "x@y.z"},
		FieldMappings: map[string]string{"email": "Email Field"},
	}

	res := e.Execute(context.Background(), step, ec)
	assert.Equal(t, locator.StatusPassed, res.Status)
	assert.Equal(t, executor.SourceCSVMapped, res.ValueSource)
	assert.Equal(t, "x@y.z", res.UsedValue)

	val, err := page.Eval(`() => document.getElementById('email').value`)
	assert.NoError(t, err)
	assert.Equal(t, "x@y.z", val.Value.Str())
}

func TestExecute_Input_FallsBackToRecordedValue(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `<input id="email" />`)

	cfg := config.Default()
	e := executor.New(cfg)

	step := locator.Step{
		ID:    "s3",
		Event: locator.EventInput,
		Label: "email",
		Value: "recorded@example.com",
		Bundle: &locator.Bundle{Tag: "input", Xpath: `//*[@id="email"]`, ID: "email"},
	}
	ec := &locator.ExecContext{Page: page}

	res := e.Execute(context.Background(), step, ec)
	assert.Equal(t, locator.StatusPassed, res.Status)
	assert.Equal(t, executor.SourceRecorded, res.ValueSource)
	assert.Equal(t, "recorded@example.com", res.UsedValue)
}

func TestExecute_ElementNotFound_SkipsWhenConfigured(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `<div>empty</div>`)

	cfg := config.Default()
	cfg.Timing.MaxRetries = 0
	cfg.Timing.FindTimeout = 0
	cfg.Behavior.SkipOnNotFound = true
	e := executor.New(cfg)

	step := locator.Step{
		ID:    "s4",
		Event: locator.EventClick,
		Label: "missing",
		Bundle: &locator.Bundle{Tag: "button", ID: "missing"},
	}
	ec := &locator.ExecContext{Page: page}

	res := e.Execute(context.Background(), step, ec)
	assert.Equal(t, locator.StatusSkipped, res.Status)
}

func TestExecute_ElementNotFound_FailsWhenNotConfiguredToSkip(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `<div>empty</div>`)

	cfg := config.Default()
	cfg.Timing.MaxRetries = 0
	cfg.Timing.FindTimeout = 0
	e := executor.New(cfg)

	step := locator.Step{
		ID:    "s5",
		Event: locator.EventClick,
		Label: "missing",
		Bundle: &locator.Bundle{Tag: "button", ID: "missing"},
	}
	ec := &locator.ExecContext{Page: page}

	res := e.Execute(context.Background(), step, ec)
	assert.Equal(t, locator.StatusFailed, res.Status)
}

func TestExecute_InvalidStep_MissingBundleAndPath(t *testing.T) {
	cfg := config.Default()
	e := executor.New(cfg)

	step := locator.Step{ID: "s6", Event: locator.EventClick}
	ec := &locator.ExecContext{}

	res := e.Execute(context.Background(), step, ec)
	assert.Equal(t, locator.StatusFailed, res.Status)
	assert.Error(t, res.Error)
}

func TestExecute_Open_PassesWithNoElement(t *testing.T) {
	cfg := config.Default()
	e := executor.New(cfg)

	step := locator.Step{ID: "s7", Event: locator.EventOpen, Value: "https://example.com/login"}
	ec := &locator.ExecContext{PageURL: "https://example.com/login"}

	res := e.Execute(context.Background(), step, ec)
	assert.Equal(t, locator.StatusPassed, res.Status)
	assert.NoError(t, res.Error)
}
