// Package bridge implements the host messaging contract of spec §6: the
// request/response channel a host (e.g. a browser extension) uses to drive
// the replay core, offered over two transports (HTTP via gin, and MCP via
// mcp-go) on top of one shared Dispatcher. Grounded in the teacher pack's
// Easonliuliang-purify repo, whose api/router.go exposes a scraping engine
// over gin and whose cmd/purify-mcp/main.go exposes the same operations
// over an MCP tool surface — generalized here from an HTTP-proxying MCP
// client into a server that dispatches both transports straight into the
// replay core, no intermediate HTTP hop required.
package bridge

import (
	"time"

	"github.com/pharrisenterprises/replaycore/internal/locator"
	"github.com/pharrisenterprises/replaycore/internal/session"
)

// ContentScriptState is the getState response of spec §6.
type ContentScriptState struct {
	Mode                string `json:"mode"`
	Initialised         bool   `json:"initialised"`
	PageURL             string `json:"pageUrl"`
	AttachedIframes     int    `json:"attachedIframes"`
	InterceptorInjected bool   `json:"interceptorInjected"`
	RecordingState      string `json:"recordingState,omitempty"`
	ReplayState         string `json:"replayState,omitempty"`
}

// StartRecordingRequest is the startRecording request payload.
type StartRecordingRequest struct {
	ProjectID string `json:"projectId,omitempty"`
}

// ExecuteReplayRequest is the executeReplay request payload.
type ExecuteReplayRequest struct {
	Steps         []locator.Step      `json:"steps"`
	CSVValues     []map[string]string `json:"csvValues,omitempty"`
	FieldMappings map[string]string   `json:"fieldMappings,omitempty"`
}

// ExecuteStepRequest is the executeStep request payload.
type ExecuteStepRequest struct {
	Step          locator.Step      `json:"step"`
	CSVValues     map[string]string `json:"csvValues,omitempty"`
	FieldMappings map[string]string `json:"fieldMappings,omitempty"`
	TimeoutMs     int               `json:"timeout,omitempty"`
}

// StepExecutionResultPayload is the wire shape of one step's outcome,
// distinct from internal/executor.StepExecutionResult so the bridge owns
// its own JSON contract independent of internal refactors.
type StepExecutionResultPayload struct {
	StepID      string  `json:"stepId"`
	Status      string  `json:"status"`
	Duration    int64   `json:"durationMs"`
	Strategy    string  `json:"locatorStrategy,omitempty"`
	Confidence  float64 `json:"locatorConfidence,omitempty"`
	UsedValue   string  `json:"usedValue,omitempty"`
	ValueSource string  `json:"valueSource,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// SessionSummaryPayload is the wire shape of a completed session, mirroring
// internal/session.SessionSummary.
type SessionSummaryPayload struct {
	ID          string      `json:"id"`
	TotalRows   int         `json:"totalRows"`
	PassedRows  int         `json:"passedRows"`
	FailedRows  int         `json:"failedRows"`
	SkippedRows int         `json:"skippedRows"`
	Success     bool        `json:"success"`
	DurationMs  int64       `json:"durationMs"`
	State       string      `json:"state"`
	RowResults  []RowResult `json:"rowResults"`
}

// RowResult is the wire shape of one row's outcome.
type RowResult struct {
	RowIndex   int    `json:"rowIndex"`
	Skipped    bool   `json:"skipped"`
	SkipReason string `json:"skipReason,omitempty"`
	Success    bool   `json:"success"`
	Passed     int    `json:"passed"`
	Failed     int    `json:"failed"`
	DurationMs int64  `json:"durationMs"`
	Error      string `json:"error,omitempty"`
}

// toSessionSummaryPayload adapts a session.SessionSummary to its wire shape.
func toSessionSummaryPayload(s session.SessionSummary) SessionSummaryPayload {
	out := SessionSummaryPayload{
		ID: s.ID, TotalRows: s.TotalRows, PassedRows: s.PassedRows,
		FailedRows: s.FailedRows, SkippedRows: s.SkippedRows,
		Success: s.Success, DurationMs: s.Duration.Milliseconds(), State: string(s.State),
	}
	for _, r := range s.RowResults {
		rr := RowResult{
			RowIndex: r.RowIndex, Skipped: r.Skipped, SkipReason: r.SkipReason,
			Success: r.Success, Passed: r.Passed, Failed: r.Failed,
			DurationMs: r.Duration.Milliseconds(),
		}
		if r.Error != nil {
			rr.Error = r.Error.Error()
		}
		out.RowResults = append(out.RowResults, rr)
	}
	return out
}

// durationMs is a small readability helper for payload construction.
func durationMs(d time.Duration) int64 { return d.Milliseconds() }
