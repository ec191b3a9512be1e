package agent

import (
	"fmt"
	"time"
)

// DefaultSafetyWindow is how recently a prerequisite tool must have run
// before a protected tool may execute. Long enough for a list-then-confirm
// conversational turn, short enough that listed identifiers stay valid.
const DefaultSafetyWindow = 30 * time.Second

// SafetyRule protects a destructive tool: it may only run if the named
// prerequisite tool was dispatched within Window in the same session.
type SafetyRule struct {
	Prerequisite string
	Window       time.Duration
}

// SafetyGate refuses protected tool dispatches whose target identifiers may
// be stale. It is a pure function of history state plus wall-clock time.
type SafetyGate struct {
	history *ToolCallHistory
	rules   map[string]SafetyRule
}

// NewSafetyGate creates a gate over the given history with no rules.
func NewSafetyGate(history *ToolCallHistory) *SafetyGate {
	return &SafetyGate{
		history: history,
		rules:   make(map[string]SafetyRule),
	}
}

// Protect registers a rule for the named tool.
func (g *SafetyGate) Protect(toolName string, rule SafetyRule) {
	if rule.Window <= 0 {
		rule.Window = DefaultSafetyWindow
	}
	g.rules[toolName] = rule
}

// Check reports whether the tool may be dispatched for the session.
// A nil *Refusal means dispatch may proceed. Check never mutates history.
func (g *SafetyGate) Check(sessionID, toolName string) *Refusal {
	rule, protected := g.rules[toolName]
	if !protected {
		return nil
	}
	if g.history.HasRecent(sessionID, rule.Prerequisite, rule.Window) {
		return nil
	}
	return &Refusal{
		Tool:         toolName,
		Prerequisite: rule.Prerequisite,
		Window:       rule.Window,
	}
}

// Refusal is the distinguished outcome of a blocked dispatch. It is fed back
// to the model as a tool result so it can self-correct by calling the
// prerequisite tool first.
type Refusal struct {
	Tool         string
	Prerequisite string
	Window       time.Duration
}

func (r *Refusal) Message() string {
	return fmt.Sprintf(
		"%s requires a recent %s call (within %s) so that identifiers are current. Call %s first, then retry.",
		r.Tool, r.Prerequisite, r.Window, r.Prerequisite,
	)
}
