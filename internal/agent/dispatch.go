package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/logging"
)

// ToolOutcome is the uniform envelope for one attempted tool dispatch.
type ToolOutcome struct {
	Tool         string
	Success      bool
	Output       string // tool's own JSON result when Success
	Err          string // failure message otherwise
	Refused      bool   // blocked by the safety gate; no dispatch occurred
	RequiredTool string
}

// ResultJSON renders the outcome as the JSON content of a tool_result block.
func (o ToolOutcome) ResultJSON() string {
	if o.Success {
		return o.Output
	}
	body := map[string]any{
		"success": false,
		"error":   o.Err,
	}
	if o.Refused {
		body["requiresPrerequisite"] = true
		body["requiredTool"] = o.RequiredTool
	}
	data, err := json.Marshal(body)
	if err != nil {
		return `{"success":false,"error":"internal: failed to encode tool result"}`
	}
	return string(data)
}

// Summary is a short human-readable description for display in the event stream.
func (o ToolOutcome) Summary() string {
	switch {
	case o.Refused:
		return fmt.Sprintf("%s refused: %s required first", o.Tool, o.RequiredTool)
	case o.Success:
		return fmt.Sprintf("%s completed", o.Tool)
	default:
		return fmt.Sprintf("%s failed: %s", o.Tool, o.Err)
	}
}

// Dispatcher executes tool calls: it gates protected tools, destructures
// untrusted input via each tool's own decode step, records attempted
// dispatches in the session history, and folds every failure mode into a
// ToolOutcome. Nothing escapes Execute — not even a tool panic.
type Dispatcher struct {
	registry *ToolRegistry
	history  *ToolCallHistory
	gate     *SafetyGate
	log      *logging.Logger
}

// NewDispatcher wires a dispatcher from its collaborators.
func NewDispatcher(registry *ToolRegistry, history *ToolCallHistory, gate *SafetyGate, log *logging.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		history:  history,
		gate:     gate,
		log:      log.Sub("dispatch"),
	}
}

// Execute runs one tool call for the session.
//
// Order matters: the gate consults history before the call is recorded, so a
// refused call leaves no record and a protected tool can never qualify as its
// own prerequisite.
func (d *Dispatcher) Execute(ctx context.Context, sessionID, toolName string, input json.RawMessage) ToolOutcome {
	tool, ok := d.registry.Get(toolName)
	if !ok {
		d.log.Warn().Str("tool", toolName).Msg("unknown tool requested")
		return ToolOutcome{
			Tool: toolName,
			Err:  fmt.Sprintf("unknown tool: %s", toolName),
		}
	}

	if refusal := d.gate.Check(sessionID, toolName); refusal != nil {
		d.log.Info().
			Str("tool", toolName).
			Str("sessionId", sessionID).
			Str("prerequisite", refusal.Prerequisite).
			Msg("dispatch refused by safety gate")
		return ToolOutcome{
			Tool:         toolName,
			Err:          refusal.Message(),
			Refused:      true,
			RequiredTool: refusal.Prerequisite,
		}
	}

	// The dispatch is happening; record it whether or not the tool succeeds.
	d.history.Record(sessionID, toolName)

	d.log.Debug().Str("tool", toolName).Str("sessionId", sessionID).Msg("executing tool")
	output, err := d.run(ctx, tool, input)
	if err != nil {
		d.log.Warn().Str("tool", toolName).Err(err).Msg("tool execution failed")
		return ToolOutcome{Tool: toolName, Err: err.Error()}
	}

	return ToolOutcome{Tool: toolName, Success: true, Output: output}
}

// run invokes the tool, converting a panic into an error.
func (d *Dispatcher) run(ctx context.Context, tool Tool, input json.RawMessage) (output string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", tool.Name(), r)
		}
	}()
	return tool.Execute(ctx, input)
}
