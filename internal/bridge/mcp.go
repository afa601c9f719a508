package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pharrisenterprises/replaycore/internal/locator"
)

// NewMCPServer exposes the same host ↔ core contract as NewRouter, but as
// an MCP tool surface for hosts that drive the core through an MCP client
// instead of raw HTTP (spec §6). Grounded in the teacher pack's
// Easonliuliang-purify cmd/purify-mcp/main.go tool-registration pattern,
// pointed at the Dispatcher directly instead of proxying HTTP calls to a
// separately running server.
func NewMCPServer(d *Dispatcher) *server.MCPServer {
	s := server.NewMCPServer("replaycore", "0.1.0", server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("ping",
		mcp.WithDescription("Liveness probe for the replay core bridge."),
	), handlePing(d))

	s.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Return the current content-script state: mode, attached iframes, recording/replay status."),
	), handleGetState(d))

	s.AddTool(mcp.NewTool("start_recording",
		mcp.WithDescription("Begin recording user interactions on the attached page into a step sequence."),
		mcp.WithString("project_id", mcp.Description("Opaque host-side project identifier for correlation.")),
	), handleStartRecording(d))

	s.AddTool(mcp.NewTool("stop_recording",
		mcp.WithDescription("Stop recording and return the captured step sequence as JSON."),
	), handleStopRecording(d))

	s.AddTool(mcp.NewTool("execute_step",
		mcp.WithDescription("Execute a single recorded step against the attached page and return its result."),
		mcp.WithString("step_json", mcp.Required(), mcp.Description("JSON-encoded Step to execute.")),
		mcp.WithString("csv_values_json", mcp.Description("JSON object of CSV column -> value for this row, if any.")),
		mcp.WithString("field_mappings_json", mcp.Description("JSON object of CSV column -> step label mapping, if any.")),
	), handleExecuteStep(d))

	s.AddTool(mcp.NewTool("execute_replay",
		mcp.WithDescription("Run a full replay session — a step sequence over zero or more data rows — against the attached page."),
		mcp.WithString("steps_json", mcp.Required(), mcp.Description("JSON array of Steps to replay.")),
		mcp.WithString("csv_values_json", mcp.Description("JSON array of row objects (CSV column -> value), if any.")),
		mcp.WithString("field_mappings_json", mcp.Description("JSON object of CSV column -> step label mapping, if any.")),
	), handleExecuteReplay(d))

	return s
}

func handlePing(d *Dispatcher) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(d.Ping())
	}
}

func handleGetState(d *Dispatcher) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(d.GetState(ctx))
	}
}

func handleStartRecording(d *Dispatcher) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projectID := req.GetString("project_id", "")
		if err := d.StartRecording(StartRecordingRequest{ProjectID: projectID}); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("recording started"), nil
	}
}

func handleStopRecording(d *Dispatcher) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(d.StopRecording())
	}
}

func handleExecuteStep(d *Dispatcher) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stepJSON, err := req.RequireString("step_json")
		if err != nil {
			return mcp.NewToolResultError("step_json is required"), nil
		}
		var step locator.Step
		if err := json.Unmarshal([]byte(stepJSON), &step); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid step_json: %v", err)), nil
		}

		var csvValues map[string]string
		if raw := req.GetString("csv_values_json", ""); raw != "" {
			if err := json.Unmarshal([]byte(raw), &csvValues); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid csv_values_json: %v", err)), nil
			}
		}
		var fieldMappings map[string]string
		if raw := req.GetString("field_mappings_json", ""); raw != "" {
			if err := json.Unmarshal([]byte(raw), &fieldMappings); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid field_mappings_json: %v", err)), nil
			}
		}

		result, err := d.ExecuteStep(ctx, ExecuteStepRequest{Step: step, CSVValues: csvValues, FieldMappings: fieldMappings})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(result)
	}
}

func handleExecuteReplay(d *Dispatcher) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stepsJSON, err := req.RequireString("steps_json")
		if err != nil {
			return mcp.NewToolResultError("steps_json is required"), nil
		}
		var steps []locator.Step
		if err := json.Unmarshal([]byte(stepsJSON), &steps); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid steps_json: %v", err)), nil
		}

		var csvValues []map[string]string
		if raw := req.GetString("csv_values_json", ""); raw != "" {
			if err := json.Unmarshal([]byte(raw), &csvValues); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid csv_values_json: %v", err)), nil
			}
		}
		var fieldMappings map[string]string
		if raw := req.GetString("field_mappings_json", ""); raw != "" {
			if err := json.Unmarshal([]byte(raw), &fieldMappings); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid field_mappings_json: %v", err)), nil
			}
		}

		summary, err := d.ExecuteReplay(ctx, ExecuteReplayRequest{Steps: steps, CSVValues: csvValues, FieldMappings: fieldMappings})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(summary)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
