// Package executor implements the Step Executor (spec §4.4): given one
// recorded Step and an ExecContext, it resolves the step's value, locates
// its target element via the Element Finder (which itself routes through
// the iframe/shadow DOM traversal of internal/browser when a bundle crosses
// those boundaries), dispatches the action via internal/action, and reports
// a structured result. Grounded in the teacher's bank.Scraper.Login/FillField
// dispatch sequence (resolve-selector-then-act), generalized from a fixed
// bank-field set into the spec's per-step resolve/act pipeline.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/pharrisenterprises/replaycore/internal/action"
	"github.com/pharrisenterprises/replaycore/internal/config"
	"github.com/pharrisenterprises/replaycore/internal/errs"
	"github.com/pharrisenterprises/replaycore/internal/finder"
	"github.com/pharrisenterprises/replaycore/internal/locator"
)

// ValueSource names which tier of spec §4.4's value-resolution order
// produced a step's usedValue.
type ValueSource string

const (
	SourceCSVDirect ValueSource = "csv-direct"
	SourceCSVMapped ValueSource = "csv-mapped"
	SourceRecorded  ValueSource = "recorded"
	SourceNone      ValueSource = "none"
)

// StepExecutionResult is the full outcome of executing one Step (spec §4.4).
type StepExecutionResult struct {
	StepID      string
	Status      locator.StepStatus
	UsedValue   string
	ValueSource ValueSource
	Strategy    string
	Confidence  float64
	Duration    time.Duration
	Error       error
}

// Executor runs one Step at a time against an ExecContext.
type Executor struct {
	cfg    *config.Config
	finder *finder.Finder
}

// New builds an Executor bound to cfg.
func New(cfg *config.Config) *Executor {
	return &Executor{cfg: cfg, finder: finder.New(cfg)}
}

// Execute resolves step's value, locates its element if the step requires
// one, dispatches the corresponding action, and returns a StepExecutionResult.
// An "open" step has no element to find; it verifies the context's current
// page URL against the step's recorded value and otherwise always succeeds.
func (e *Executor) Execute(ctx context.Context, step locator.Step, ec *locator.ExecContext) StepExecutionResult {
	start := time.Now()

	if err := validateStep(step); err != nil {
		return StepExecutionResult{StepID: step.ID, Status: locator.StatusFailed, Error: err, Duration: time.Since(start)}
	}

	usedValue, source := resolveValue(step, ec)

	if step.Event == locator.EventOpen {
		return e.executeOpen(step, ec, usedValue, source, start)
	}

	res, err := e.locate(ctx, step, ec)
	if err != nil {
		status := locator.StatusFailed
		if e.cfg.Behavior.SkipOnNotFound {
			if kind, ok := errs.KindOf(err); ok && kind == errs.ElementNotFound {
				status = locator.StatusSkipped
			}
		}
		return StepExecutionResult{
			StepID: step.ID, Status: status, UsedValue: usedValue, ValueSource: source,
			Error: err, Duration: time.Since(start),
		}
	}

	actErr := e.dispatch(ctx, step, ec, res.Element, usedValue)

	out := StepExecutionResult{
		StepID: step.ID, UsedValue: usedValue, ValueSource: source,
		Strategy: res.Strategy, Confidence: res.Confidence, Duration: time.Since(start),
	}
	if actErr != nil {
		out.Status = locator.StatusFailed
		out.Error = actErr
		return out
	}
	out.Status = locator.StatusPassed
	return out
}

func validateStep(step locator.Step) error {
	if step.Event == "" {
		return errs.New(errs.InvalidStep, "executor.Execute", "step has no event kind")
	}
	if step.RequiresBundle() && step.Bundle == nil && step.Path == "" {
		return errs.New(errs.InvalidStep, "executor.Execute", "step requires a bundle or path but has neither")
	}
	return nil
}

// resolveValue implements spec §4.4's value-resolution order: a CSV column
// matching the step's label directly, then a mapped column via
// FieldMappings, then the value recorded at capture time, then none.
func resolveValue(step locator.Step, ec *locator.ExecContext) (string, ValueSource) {
	if ec != nil {
		if v, ok := ec.CSVValues[step.Label]; ok {
			return v, SourceCSVDirect
		}
		for csvColumn, label := range ec.FieldMappings {
			if label != step.Label {
				continue
			}
			if v, ok := ec.CSVValues[csvColumn]; ok {
				return v, SourceCSVMapped
			}
		}
	}
	if step.Value != "" {
		return step.Value, SourceRecorded
	}
	return "", SourceNone
}

func (e *Executor) executeOpen(step locator.Step, ec *locator.ExecContext, usedValue string, source ValueSource, start time.Time) StepExecutionResult {
	out := StepExecutionResult{StepID: step.ID, UsedValue: usedValue, ValueSource: source, Status: locator.StatusPassed}
	if usedValue != "" && ec != nil && ec.PageURL != "" && ec.PageURL != usedValue {
		out.Error = errs.New(errs.InvalidStep, "executor.executeOpen",
			fmt.Sprintf("current page url %q does not match recorded open target %q", ec.PageURL, usedValue))
	}
	out.Duration = time.Since(start)
	return out
}

// locate resolves step's element. A bundled step always goes through the
// full multi-strategy finder (spec §4.2): its own xpath strategy already
// routes shadow-DOM and iframe-chain bundles through browser.FindInShadowChain
// / browser.FindInIframeChain as strategy #1, and the remaining eight
// strategies reach into shadow roots and iframes too via deepQuery, so a
// stale xpath on a nested element still falls through to id/aria/css/etc
// instead of failing outright. Only a step with no bundle at all (bare
// path) skips the finder and goes straight to a plain xpath lookup.
func (e *Executor) locate(ctx context.Context, step locator.Step, ec *locator.ExecContext) (*finder.Result, error) {
	if ec == nil || ec.Page == nil {
		return nil, errs.New(errs.InvalidStep, "executor.locate", "exec context has no live page")
	}
	bundle := step.Bundle
	xpath := step.UsablePath()

	if bundle != nil {
		return e.finder.Find(ctx, ec.Page, bundle)
	}

	el, err := ec.Page.ElementX(xpath)
	if err != nil {
		return nil, errs.Wrap(errs.ElementNotFound, "executor.locate", err, "no bundle; bare xpath lookup failed")
	}
	return &finder.Result{Element: el, Strategy: "xpath", Confidence: baseConfidenceNoBundle}, nil
}

const baseConfidenceNoBundle = 0.5

// dispatch runs the action the step's event kind calls for. An "enter" step
// with a resolved value first writes the value, then presses enter, matching
// the teacher's combined fill-then-submit field sequence.
func (e *Executor) dispatch(ctx context.Context, step locator.Step, ec *locator.ExecContext, el *rod.Element, usedValue string) error {
	switch step.Event {
	case locator.EventClick:
		res := action.Click(ctx, el, ec.Page, e.cfg)
		return res.Error

	case locator.EventInput:
		res := action.Input(ctx, el, usedValue, e.cfg)
		return res.Error

	case locator.EventEnter:
		if usedValue != "" {
			if res := action.Input(ctx, el, usedValue, e.cfg); res.Error != nil {
				return res.Error
			}
		}
		res := action.PressEnter(ctx, el, e.cfg)
		return res.Error

	default:
		return errs.New(errs.InvalidStep, "executor.dispatch", "unknown event kind: "+string(step.Event))
	}
}
