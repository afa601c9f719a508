// Package session implements the data-driven Session (spec §4.6): it
// iterates a Replay Engine once per row of a data table, applying a
// per-row skip/continue policy and aggregating the per-row summaries into
// a SessionSummary. Grounded in the teacher's bank.Scraper multi-account
// loop (one Login/FillField pass per account row in a CSV-style batch),
// generalized into the spec's engine-per-row driver with row-level
// lifecycle control mirroring the engine's own.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/google/uuid"
	"github.com/pharrisenterprises/replaycore/internal/config"
	"github.com/pharrisenterprises/replaycore/internal/errs"
	"github.com/pharrisenterprises/replaycore/internal/executor"
	"github.com/pharrisenterprises/replaycore/internal/locator"
	"github.com/pharrisenterprises/replaycore/internal/replay"
)

// State mirrors the Replay Engine's lifecycle alphabet (spec §4.6: "Session
// lifecycle mirrors the engine's").
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
	StateStopped   State = "stopped"
	StateError     State = "error"
)

// skippedReasonNoMatch is the fixed diagnostic spec §4.6 names for a row
// skipped by the unmatched-fields filter.
const skippedReasonNoMatch = "No matching fields"

// RowExecutionResult is the outcome of running the owned Engine once over
// one data row (spec §4.6).
type RowExecutionResult struct {
	RowIndex     int
	RowData      map[string]string
	Skipped      bool
	SkipReason   string
	Success      bool
	Passed       int
	Failed       int
	SkippedSteps int // steps the Step Executor reported as skipped, distinct from Skipped (a whole-row skip)
	Duration     time.Duration
	StepResults  []executor.StepExecutionResult
	Error        error
}

// SessionSummary aggregates every row's result, mirroring the Engine's
// ExecutionSummary one level up (spec §4.6).
type SessionSummary struct {
	ID         string
	TotalRows  int
	PassedRows int
	FailedRows int
	SkippedRows int
	Success    bool
	Duration   time.Duration
	RowResults []RowExecutionResult
	State      State
}

// Progress reports session-level advancement across rows.
type Progress struct {
	RowIndex  int
	TotalRows int
	Elapsed   time.Duration
}

// Session owns one Engine and drives it once per row of a data table.
type Session struct {
	cfg    *config.Config
	engine *replay.Engine
	id     string

	mu      sync.Mutex
	state   State
	paused  bool
	stopReq bool

	consecutiveRowFailures int

	onRowStart    []func(int, map[string]string)
	onRowComplete []func(RowExecutionResult)
	onProgress    []func(Progress)
	onComplete    []func(SessionSummary)
	onStateChange []func(from, to State)
}

// New builds an idle Session bound to cfg, owning a fresh Engine.
func New(cfg *config.Config) *Session {
	return &Session{
		cfg:    cfg,
		engine: replay.New(cfg),
		id:     uuid.NewString(),
		state:  StateIdle,
	}
}

// ID returns the session's stable identifier, used by host-bridge callers
// to correlate an executeReplay request with its SessionSummary response.
func (s *Session) ID() string { return s.id }

// OnRowStart registers a handler fired before each row begins.
func (s *Session) OnRowStart(fn func(rowIndex int, row map[string]string)) {
	s.onRowStart = append(s.onRowStart, fn)
}

// OnRowComplete registers a handler fired after each row finishes.
func (s *Session) OnRowComplete(fn func(RowExecutionResult)) {
	s.onRowComplete = append(s.onRowComplete, fn)
}

// OnProgress registers a handler fired after each row with session progress.
func (s *Session) OnProgress(fn func(Progress)) { s.onProgress = append(s.onProgress, fn) }

// OnComplete registers a handler fired once the session reaches a terminal
// state.
func (s *Session) OnComplete(fn func(SessionSummary)) { s.onComplete = append(s.onComplete, fn) }

// OnStateChange registers a handler fired on every lifecycle transition.
func (s *Session) OnStateChange(fn func(from, to State)) {
	s.onStateChange = append(s.onStateChange, fn)
}

// State reports the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Rows is the data table's rows, plus the CSV column -> step label mappings
// consulted by the owned Engine's value resolution.
type Rows struct {
	Data          []map[string]string
	FieldMappings map[string]string
}

// Start determines the row list per spec §4.6 — the configured rows if
// non-empty, else a single empty row so the step sequence runs at least
// once — and runs the owned Engine to completion over steps once per row,
// aggregating a SessionSummary. Start blocks until the session reaches a
// terminal state.
func (s *Session) Start(ctx context.Context, steps []locator.Step, page *rod.Page, rows Rows) SessionSummary {
	if err := s.transition(StateIdle, StateRunning); err != nil {
		return SessionSummary{ID: s.id, State: s.State()}
	}

	rowList := rows.Data
	if len(rowList) == 0 {
		rowList = []map[string]string{{}}
	}

	start := time.Now()
	summary := SessionSummary{ID: s.id, TotalRows: len(rowList)}

	for i, row := range rowList {
		if i > 0 {
			s.rowDelay(ctx)
		}

		if s.waitWhilePaused(ctx) {
			s.setState(StateStopped)
			summary.State = StateStopped
			summary.Duration = time.Since(start)
			s.fireComplete(summary)
			return summary
		}

		select {
		case <-ctx.Done():
			s.setState(StateError)
			summary.State = StateError
			summary.Duration = time.Since(start)
			s.fireComplete(summary)
			return summary
		default:
		}

		s.fireRowStart(i, row)

		var result RowExecutionResult
		if s.cfg.Session.SkipUnmatchedRows && len(row) > 0 && !rowMatchesSteps(row, steps, rows.FieldMappings) {
			result = RowExecutionResult{
				RowIndex: i, RowData: row, Skipped: true, SkipReason: skippedReasonNoMatch, Success: true,
			}
		} else {
			result = s.runRow(ctx, i, row, steps, page, rows.FieldMappings)
		}

		summary.RowResults = append(summary.RowResults, result)
		s.tally(&summary, result)
		s.fireRowComplete(result)
		s.fireProgress(Progress{RowIndex: i + 1, TotalRows: len(rowList), Elapsed: time.Since(start)})

		if s.shouldAbort(result) {
			s.setState(StateError)
			summary.State = StateError
			summary.Duration = time.Since(start)
			s.fireComplete(summary)
			return summary
		}

		if s.isStopRequested() {
			s.setState(StateStopped)
			summary.State = StateStopped
			summary.Duration = time.Since(start)
			s.fireComplete(summary)
			return summary
		}
	}

	s.setState(StateCompleted)
	summary.State = StateCompleted
	summary.Success = summary.FailedRows == 0
	summary.Duration = time.Since(start)
	s.fireComplete(summary)
	return summary
}

// runRow drives the owned Engine to completion over steps with csvValues
// bound to row, then resets the engine so its state machine is reusable
// for the next row (spec §4.6 step 4).
func (s *Session) runRow(ctx context.Context, rowIndex int, row map[string]string, steps []locator.Step, page *rod.Page, fieldMappings map[string]string) RowExecutionResult {
	ec := &locator.ExecContext{Page: page, CSVValues: row, FieldMappings: fieldMappings}

	rowStart := time.Now()
	execSummary := s.engine.Start(ctx, steps, ec)
	s.engine.Reset()

	result := RowExecutionResult{
		RowIndex:     rowIndex,
		RowData:      row,
		Success:      execSummary.Failed == 0 && execSummary.State != replay.StateError,
		Passed:       execSummary.Passed,
		Failed:       execSummary.Failed,
		SkippedSteps: execSummary.Skipped,
		Duration:     time.Since(rowStart),
		StepResults:  execSummary.Results,
	}
	if execSummary.State == replay.StateError {
		result.Error = errs.New(errs.ActionFailed, "session.runRow", "row's engine run ended in error")
	}
	return result
}

// rowMatchesSteps reports whether at least one step label equals some CSV
// column name in row, directly or via a field mapping (spec §4.6 step 3).
func rowMatchesSteps(row map[string]string, steps []locator.Step, fieldMappings map[string]string) bool {
	labels := make(map[string]bool, len(steps))
	for _, st := range steps {
		labels[st.Label] = true
	}
	for column := range row {
		if labels[column] {
			return true
		}
		if mapped, ok := fieldMappings[column]; ok && labels[mapped] {
			return true
		}
	}
	return false
}

// Pause requests the session suspend at its next row boundary, also
// pausing the owned Engine if it is mid-row (spec §4.6: "Pausing the
// session at a row boundary also pauses the engine if mid-row").
func (s *Session) Pause() {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	old := s.state
	s.paused = true
	s.state = StatePaused
	s.fireStateChangeLocked(old, StatePaused)
	s.mu.Unlock()
	s.engine.Pause()
}

// Resume wakes a paused session and its engine.
func (s *Session) Resume() {
	s.mu.Lock()
	if s.state != StatePaused {
		s.mu.Unlock()
		return
	}
	old := s.state
	s.paused = false
	s.state = StateRunning
	s.fireStateChangeLocked(old, StateRunning)
	s.mu.Unlock()
	s.engine.Resume()
}

// Stop requests the session end at its next row boundary. Safe to call
// whether running or paused.
func (s *Session) Stop() {
	s.mu.Lock()
	s.stopReq = true
	s.mu.Unlock()
	s.engine.Stop()
}

func (s *Session) transition(from, to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return errs.New(errs.IllegalTransition, "session.Session.Start", "cannot start: session is not idle")
	}
	s.state = to
	s.fireStateChangeLocked(from, to)
	return nil
}

func (s *Session) setState(to State) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.fireStateChangeLocked(from, to)
	s.mu.Unlock()
}

func (s *Session) fireStateChangeLocked(from, to State) {
	for _, fn := range s.onStateChange {
		safeCall(func() { fn(from, to) })
	}
}

func (s *Session) waitWhilePaused(ctx context.Context) bool {
	for {
		s.mu.Lock()
		paused := s.paused
		stop := s.stopReq
		s.mu.Unlock()
		if stop {
			return true
		}
		if !paused {
			return false
		}
		select {
		case <-ctx.Done():
			return true
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func (s *Session) isStopRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopReq
}

// rowDelay honours cfg.Session.RowDelay before every row but the first
// (spec §4.6 step 1), observing cancellation while waiting.
func (s *Session) rowDelay(ctx context.Context) {
	d := s.cfg.Session.RowDelay
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// shouldAbort reports whether the session must end in StateError: the row
// failed and ContinueOnRowFailure is false, or the consecutive-row-failure
// budget is exhausted (spec §4.6 step 6).
func (s *Session) shouldAbort(result RowExecutionResult) bool {
	if result.Skipped || result.Success {
		s.mu.Lock()
		s.consecutiveRowFailures = 0
		s.mu.Unlock()
		return false
	}

	s.mu.Lock()
	s.consecutiveRowFailures++
	failures := s.consecutiveRowFailures
	s.mu.Unlock()

	if !s.cfg.Session.ContinueOnRowFailure {
		return true
	}
	max := s.cfg.Session.MaxRowFailures
	return max > 0 && failures >= max
}

func (s *Session) tally(summary *SessionSummary, result RowExecutionResult) {
	switch {
	case result.Skipped:
		summary.SkippedRows++
	case result.Success:
		summary.PassedRows++
	default:
		summary.FailedRows++
	}
}

func (s *Session) fireRowStart(rowIndex int, row map[string]string) {
	for _, fn := range s.onRowStart {
		safeCall(func() { fn(rowIndex, row) })
	}
}

func (s *Session) fireRowComplete(result RowExecutionResult) {
	for _, fn := range s.onRowComplete {
		safeCall(func() { fn(result) })
	}
}

func (s *Session) fireProgress(p Progress) {
	for _, fn := range s.onProgress {
		safeCall(func() { fn(p) })
	}
}

func (s *Session) fireComplete(summary SessionSummary) {
	for _, fn := range s.onComplete {
		safeCall(func() { fn(summary) })
	}
}

func safeCall(fn func()) {
	defer func() {
		recover()
	}()
	fn()
}
