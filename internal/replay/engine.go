// Package replay implements the Replay Engine (spec §4.5): a cooperative,
// single-threaded lifecycle around the Step Executor, driving one step at a
// time with pause/resume/stop control and handler callbacks for progress
// reporting. Grounded in the teacher's bank.Scraper run loop (sequential
// per-field dispatch with structured slog progress lines), generalized into
// a full state machine with external control.
package replay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pharrisenterprises/replaycore/internal/config"
	"github.com/pharrisenterprises/replaycore/internal/errs"
	"github.com/pharrisenterprises/replaycore/internal/executor"
	"github.com/pharrisenterprises/replaycore/internal/locator"
)

// State is one node of the engine's lifecycle (spec §4.5):
// idle -> running -> {paused <-> running} -> {completed | stopped | error}.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
	StateStopped   State = "stopped"
	StateError     State = "error"
)

// Progress reports how far Start has gotten through the current run, with
// an ETA extrapolated from the average per-step duration so far.
type Progress struct {
	StepIndex   int
	TotalSteps  int
	Elapsed     time.Duration
	ETA         time.Duration
}

// ExecutionSummary is returned by Start once the run reaches a terminal
// state, aggregating every step's result.
type ExecutionSummary struct {
	Total    int
	Passed   int
	Failed   int
	Skipped  int
	Duration time.Duration
	Results  []executor.StepExecutionResult
	State    State
}

// Engine drives a sequence of Steps through the Step Executor, one at a
// time, honoring pause/resume/stop requests issued from another goroutine.
type Engine struct {
	cfg  *config.Config
	exec *executor.Executor

	mu      sync.Mutex
	cond    *sync.Cond
	state   State
	paused  bool
	stopReq bool

	consecutiveFailures int

	onStepStart    []func(locator.Step)
	onStepComplete []func(executor.StepExecutionResult)
	onProgress     []func(Progress)
	onComplete     []func(ExecutionSummary)
	onError        []func(error)
	onStateChange  []func(from, to State)
}

// New builds an idle Engine bound to cfg.
func New(cfg *config.Config) *Engine {
	e := &Engine{cfg: cfg, exec: executor.New(cfg), state: StateIdle}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// OnStepStart registers a handler fired just before each step is executed.
func (e *Engine) OnStepStart(fn func(locator.Step)) { e.onStepStart = append(e.onStepStart, fn) }

// OnStepComplete registers a handler fired after each step finishes.
func (e *Engine) OnStepComplete(fn func(executor.StepExecutionResult)) {
	e.onStepComplete = append(e.onStepComplete, fn)
}

// OnProgress registers a handler fired after each step with run progress.
func (e *Engine) OnProgress(fn func(Progress)) { e.onProgress = append(e.onProgress, fn) }

// OnComplete registers a handler fired once when the run reaches a terminal
// state.
func (e *Engine) OnComplete(fn func(ExecutionSummary)) { e.onComplete = append(e.onComplete, fn) }

// OnError registers a handler fired whenever a step produces an error,
// independent of whether that error ends the run.
func (e *Engine) OnError(fn func(error)) { e.onError = append(e.onError, fn) }

// OnStateChange registers a handler fired on every lifecycle transition.
func (e *Engine) OnStateChange(fn func(from, to State)) {
	e.onStateChange = append(e.onStateChange, fn)
}

// State reports the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Start runs steps against ec from idle through to a terminal state,
// firing handlers synchronously in registration order as it goes. A
// handler that panics is recovered and logged, never aborting the run.
// Start blocks until the run reaches completed, stopped, or error.
func (e *Engine) Start(ctx context.Context, steps []locator.Step, ec *locator.ExecContext) ExecutionSummary {
	if err := e.transition(StateIdle, StateRunning); err != nil {
		return ExecutionSummary{State: e.State(), Results: nil}
	}

	start := time.Now()
	summary := ExecutionSummary{Total: len(steps)}

	for i, step := range steps {
		if e.waitWhilePaused(ctx) {
			e.setState(StateStopped)
			summary.State = StateStopped
			break
		}

		select {
		case <-ctx.Done():
			e.setState(StateError)
			e.fireErrors(errs.Wrap(errs.Aborted, "replay.Start", ctx.Err(), "context canceled"))
			summary.State = StateError
			summary.Duration = time.Since(start)
			e.fireComplete(summary)
			return summary
		default:
		}

		e.fireStepStart(step)
		res := e.exec.Execute(ctx, step, ec)
		summary.Results = append(summary.Results, res)
		e.tally(&summary, res)
		e.fireStepComplete(res)

		if res.Error != nil {
			e.fireErrors(res.Error)
		}

		e.updateFailureStreak(res)
		e.fireProgress(Progress{
			StepIndex:  i + 1,
			TotalSteps: len(steps),
			Elapsed:    time.Since(start),
			ETA:        eta(start, i+1, len(steps)),
		})

		if e.shouldAbort(res) {
			e.setState(StateError)
			summary.State = StateError
			summary.Duration = time.Since(start)
			e.fireComplete(summary)
			return summary
		}

		if e.isStopRequested() {
			e.setState(StateStopped)
			summary.State = StateStopped
			summary.Duration = time.Since(start)
			e.fireComplete(summary)
			return summary
		}

		e.pace(ctx, i, len(steps))
	}

	if summary.State == "" {
		e.setState(StateCompleted)
		summary.State = StateCompleted
	}
	summary.Duration = time.Since(start)
	e.fireComplete(summary)
	return summary
}

// Pause requests the run suspend itself before its next step, per spec
// §4.5's running -> paused transition. A no-op when not running.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateRunning {
		return
	}
	old := e.state
	e.paused = true
	e.state = StatePaused
	e.fireStateChangeLocked(old, StatePaused)
}

// Resume wakes a paused run, per spec §4.5's paused -> running transition. A
// no-op when not paused.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePaused {
		return
	}
	old := e.state
	e.paused = false
	e.state = StateRunning
	e.fireStateChangeLocked(old, StateRunning)
	e.cond.Broadcast()
}

// Stop requests the run end before its next step, landing in StateStopped.
// Safe to call whether the engine is running or paused.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopReq = true
	if e.paused {
		e.paused = false
		e.cond.Broadcast()
	}
}

// Reset returns a completed/stopped/error engine to idle so it can be
// reused for another run of steps (spec §4.6's per-row engine reuse).
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	old := e.state
	e.state = StateIdle
	e.paused = false
	e.stopReq = false
	e.consecutiveFailures = 0
	e.fireStateChangeLocked(old, StateIdle)
}

func (e *Engine) transition(from, to State) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != from {
		return errs.New(errs.IllegalTransition, "replay.Engine.Start",
			"cannot start: engine is not idle")
	}
	e.state = to
	e.fireStateChangeLocked(from, to)
	return nil
}

func (e *Engine) setState(to State) {
	e.mu.Lock()
	from := e.state
	e.state = to
	e.fireStateChangeLocked(from, to)
	e.mu.Unlock()
}

func (e *Engine) fireStateChangeLocked(from, to State) {
	for _, fn := range e.onStateChange {
		safeCall(func() { fn(from, to) })
	}
}

// waitWhilePaused blocks the run loop while paused, returning true if a
// stop was requested while waiting.
func (e *Engine) waitWhilePaused(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for e.paused && !e.stopReq {
		e.cond.Wait()
	}
	return e.stopReq
}

func (e *Engine) isStopRequested() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopReq
}

func (e *Engine) updateFailureStreak(res executor.StepExecutionResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if res.Status == locator.StatusFailed {
		e.consecutiveFailures++
	} else {
		e.consecutiveFailures = 0
	}
}

// shouldAbort reports whether the run must end in StateError: either the
// step failed and continueOnFailure is false, or the consecutive-failure
// budget is exhausted.
func (e *Engine) shouldAbort(res executor.StepExecutionResult) bool {
	if res.Status != locator.StatusFailed {
		return false
	}
	if !e.cfg.Behavior.ContinueOnFailure {
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	max := e.cfg.Error.MaxConsecutiveFailures
	return max > 0 && e.consecutiveFailures >= max
}

// pace waits between steps per cfg.Timing.StepDelay, or a uniformly random
// draw from HumanDelay when set, skipping the wait after the final step. A
// canceled context interrupts the wait immediately instead of riding out the
// full delay.
func (e *Engine) pace(ctx context.Context, i, total int) {
	if i >= total-1 {
		return
	}
	d := e.cfg.Timing.StepDelay
	if hd := e.cfg.Timing.HumanDelay; hd != nil {
		d = randDuration(hd[0], hd[1])
	}
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func (e *Engine) tally(summary *ExecutionSummary, res executor.StepExecutionResult) {
	switch res.Status {
	case locator.StatusPassed:
		summary.Passed++
	case locator.StatusFailed:
		summary.Failed++
	case locator.StatusSkipped:
		summary.Skipped++
	}
}

func (e *Engine) fireStepStart(step locator.Step) {
	for _, fn := range e.onStepStart {
		safeCall(func() { fn(step) })
	}
}

func (e *Engine) fireStepComplete(res executor.StepExecutionResult) {
	for _, fn := range e.onStepComplete {
		safeCall(func() { fn(res) })
	}
}

func (e *Engine) fireProgress(p Progress) {
	for _, fn := range e.onProgress {
		safeCall(func() { fn(p) })
	}
}

func (e *Engine) fireComplete(summary ExecutionSummary) {
	for _, fn := range e.onComplete {
		safeCall(func() { fn(summary) })
	}
}

func (e *Engine) fireErrors(err error) {
	for _, fn := range e.onError {
		safeCall(func() { fn(err) })
	}
}

// safeCall recovers a panicking handler and logs it rather than letting it
// abort the run — handlers are caller-supplied and must not be able to take
// down replay in progress.
func safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("replay: handler panicked", "recover", r)
		}
	}()
	fn()
}

func eta(start time.Time, done, total int) time.Duration {
	if done == 0 || total == 0 {
		return 0
	}
	avg := time.Since(start) / time.Duration(done)
	remaining := total - done
	if remaining <= 0 {
		return 0
	}
	return avg * time.Duration(remaining)
}
