package bridge

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/google/uuid"
	"github.com/pharrisenterprises/replaycore/internal/browser"
	"github.com/pharrisenterprises/replaycore/internal/config"
	"github.com/pharrisenterprises/replaycore/internal/errs"
	"github.com/pharrisenterprises/replaycore/internal/executor"
	"github.com/pharrisenterprises/replaycore/internal/locator"
	"github.com/pharrisenterprises/replaycore/internal/recorder"
	"github.com/pharrisenterprises/replaycore/internal/session"
)

// Dispatcher is the single root object (spec §9: "construct one root object
// at startup that owns every component; pass references down") behind both
// the HTTP and MCP transports. It owns the live page, the current
// recording/replay state, and builds a fresh Session or Executor per
// request — no package-level singletons.
type Dispatcher struct {
	cfg *config.Config

	mu            sync.Mutex
	page          *rod.Page
	rec           *recorder.Recorder
	recCancel     context.CancelFunc
	recEvents     []recorder.RecordedEvent
	recordingMode bool
	lastSession   *session.SessionSummary
}

// New builds a Dispatcher bound to page (the live tab the host attached the
// core to) and cfg.
func New(page *rod.Page, cfg *config.Config) *Dispatcher {
	return &Dispatcher{cfg: cfg, page: page}
}

// Ping answers the liveness probe of spec §6.
func (d *Dispatcher) Ping() map[string]bool { return map[string]bool{"ready": true} }

// GetState answers spec §6's getState request.
func (d *Dispatcher) GetState(ctx context.Context) ContentScriptState {
	d.mu.Lock()
	defer d.mu.Unlock()

	state := ContentScriptState{
		Mode:                "idle",
		Initialised:         d.page != nil,
		InterceptorInjected: d.rec != nil,
	}
	if d.recordingMode {
		state.Mode = "recording"
		state.RecordingState = "running"
	}
	if d.page != nil {
		if info, err := d.page.Info(); err == nil && info != nil {
			state.PageURL = info.URL
		}
		if frames, err := browser.DiscoverIframes(d.page); err == nil {
			state.AttachedIframes = len(frames)
		}
	}
	return state
}

// StartRecording begins capture on the Dispatcher's page (spec §6's
// startRecording request). ProjectID is accepted for host correlation but
// otherwise opaque to the core, per spec's "CSV parser and project-storage
// layer" being an external collaborator.
func (d *Dispatcher) StartRecording(req StartRecordingRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.page == nil {
		return errs.New(errs.HostDisconnected, "bridge.StartRecording", "no live page attached")
	}
	if d.recordingMode {
		return errs.New(errs.InvalidStep, "bridge.StartRecording", "recording already in progress")
	}

	d.rec = recorder.New(recorder.DefaultOptions())
	d.recEvents = nil
	d.rec.OnEvent(func(e recorder.RecordedEvent) {
		d.mu.Lock()
		d.recEvents = append(d.recEvents, e)
		d.mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	d.recCancel = cancel
	d.recordingMode = true

	page := d.page
	rec := d.rec
	go func() { _ = rec.Start(ctx, page) }()
	return nil
}

// StopRecording ends capture (spec §6's stopRecording request) and returns
// the recorded steps.
func (d *Dispatcher) StopRecording() []locator.Step {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.recCancel != nil {
		d.recCancel()
	}
	d.recordingMode = false

	steps := make([]locator.Step, len(d.recEvents))
	for i, e := range d.recEvents {
		steps[i] = e.Step
	}
	return steps
}

// ExecuteStep runs one step via a fresh Step Executor (spec §6's
// executeStep request) and returns its result on the wire.
func (d *Dispatcher) ExecuteStep(ctx context.Context, req ExecuteStepRequest) (StepExecutionResultPayload, error) {
	d.mu.Lock()
	page := d.page
	d.mu.Unlock()
	if page == nil {
		return StepExecutionResultPayload{}, errs.New(errs.HostDisconnected, "bridge.ExecuteStep", "no live page attached")
	}

	cfg := *d.cfg
	if req.TimeoutMs > 0 {
		cfg.Timing.FindTimeout = time.Duration(req.TimeoutMs) * time.Millisecond
	}

	slog.Debug("bridge: executeStep", "requestId", newID(), "stepId", req.Step.ID, "event", req.Step.Event, "csvValues", redactRow(req.CSVValues))

	ec := &locator.ExecContext{Page: page, CSVValues: req.CSVValues, FieldMappings: req.FieldMappings}
	exec := executor.New(&cfg)
	res := exec.Execute(ctx, req.Step, ec)

	out := StepExecutionResultPayload{
		StepID: res.StepID, Status: string(res.Status), Duration: durationMs(res.Duration),
		Strategy: res.Strategy, Confidence: res.Confidence,
		UsedValue: res.UsedValue, ValueSource: string(res.ValueSource),
	}
	if res.Error != nil {
		out.Error = res.Error.Error()
	}
	return out, nil
}

// ExecuteReplay kicks off a full Session run (spec §6's executeReplay
// request) and returns its SessionSummary once the run reaches a terminal
// state.
func (d *Dispatcher) ExecuteReplay(ctx context.Context, req ExecuteReplayRequest) (SessionSummaryPayload, error) {
	d.mu.Lock()
	page := d.page
	d.mu.Unlock()
	if page == nil {
		return SessionSummaryPayload{}, errs.New(errs.HostDisconnected, "bridge.ExecuteReplay", "no live page attached")
	}

	s := session.New(d.cfg)
	slog.Info("bridge: executeReplay", "sessionId", s.ID(), "steps", len(req.Steps), "rows", len(req.CSVValues))

	rows := session.Rows{Data: req.CSVValues, FieldMappings: req.FieldMappings}
	summary := s.Start(ctx, req.Steps, page, rows)

	d.mu.Lock()
	d.lastSession = &summary
	d.mu.Unlock()

	return toSessionSummaryPayload(summary), nil
}

// newID is a small indirection kept so callers needing a correlation id for
// a request outside an owned Session (e.g. a one-off executeStep call) get
// the same uuid scheme the Session uses for its own ID.
func newID() string { return uuid.NewString() }
