package agent

import (
	"fmt"
	"strings"
	"time"
)

// PromptConfig controls system prompt generation.
type PromptConfig struct {
	AgentName   string
	UserName    string
	ExtraPrompt string
}

// BuildSystemPrompt constructs the system prompt for the model. The tool
// catalog is not included here — it travels in the completion request's
// tools field so the model receives structured definitions.
func BuildSystemPrompt(cfg PromptConfig) string {
	var b strings.Builder

	name := cfg.AgentName
	if name == "" {
		name = "Assistant"
	}
	fmt.Fprintf(&b, "You are %s, an assistant that manages the user's calendar and mailbox.\n\n", name)

	fmt.Fprintf(&b, "Current date: %s\n", time.Now().Format("2006-01-02"))
	if cfg.UserName != "" {
		fmt.Fprintf(&b, "User: %s\n", cfg.UserName)
	}
	b.WriteString("\n")

	b.WriteString("Guidelines:\n")
	b.WriteString("- Use the provided tools to read or modify the calendar and mailbox; never invent event or message identifiers.\n")
	b.WriteString("- Before deleting a calendar event, list events first and confirm the target id against the listing.\n")
	b.WriteString("- If a tool reports that a prerequisite is required, run the prerequisite and retry.\n")
	b.WriteString("- When using tools, explain what you're doing.\n")

	if cfg.ExtraPrompt != "" {
		b.WriteString("\n")
		b.WriteString(cfg.ExtraPrompt)
		b.WriteString("\n")
	}

	return b.String()
}
