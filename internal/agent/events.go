package agent

import "encoding/json"

// EventType identifies a loop progress event.
type EventType string

const (
	EventAssistantText EventType = "assistant_text"
	EventToolCall      EventType = "tool_call"
	EventToolResult    EventType = "tool_result"
	EventError         EventType = "error"
	EventDone          EventType = "done"
)

// Event is one frame of loop progress pushed to the caller as it occurs.
// Ordering is strict: text blocks of an iteration precede its tool events,
// and each tool_call precedes its own tool_result.
type Event struct {
	Type EventType `json:"type"`

	// assistant_text
	Text string `json:"text,omitempty"`

	// tool_call / tool_result
	ToolName  string          `json:"toolName,omitempty"`
	ToolUseID string          `json:"toolUseId,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	Success   bool            `json:"success,omitempty"`
	Summary   string          `json:"summary,omitempty"`

	// error
	Error string `json:"error,omitempty"`

	// done
	Result *RunResult `json:"result,omitempty"`
}
